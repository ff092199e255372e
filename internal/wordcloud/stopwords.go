package wordcloud

// stopwords are common English words plus filler that dominates issue
// threads without carrying meaning. Words shorter than minWordLength are
// already dropped by the tokenizer.
var stopwords = map[string]struct{}{}

func init() {
	list := []string{
		"about", "above", "after", "again", "against", "because", "been",
		"before", "being", "below", "between", "both", "cannot", "could",
		"does", "doing", "down", "during", "each", "every", "from", "further",
		"have", "having", "here", "hers", "herself", "himself", "into",
		"itself", "just", "more", "most", "myself", "once", "only", "other",
		"ours", "ourselves", "over", "same", "should", "some", "such", "than",
		"that", "their", "theirs", "them", "themselves", "then", "there",
		"these", "they", "this", "those", "through", "under", "until",
		"very", "were", "what", "when", "where", "which", "while", "whom",
		"with", "would", "your", "yours", "yourself", "yourselves",

		"also", "able", "will", "like", "want", "need", "using",
		"used", "uses", "make", "makes", "made", "making", "still", "even",
		"much", "many", "well", "however", "though", "since", "without",
		"within", "getting", "goes", "going", "gets", "seems", "seem",
		"thanks", "thank", "please", "hello", "think", "know", "sure",
		"actually", "really", "something", "anything", "nothing", "someone",
		"anyone", "everything", "maybe", "might", "must", "shall", "right",
		"wrong", "good", "great", "currently", "already", "instead", "around",
		"another", "others", "example", "following", "code", "issue",
		"issues",
	}
	for _, w := range list {
		stopwords[w] = struct{}{}
	}
}
