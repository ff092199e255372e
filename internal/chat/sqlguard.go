package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Model-proposed SQL runs under two rules: a single SELECT statement, and
// every issues table reference scoped to one repository through a bind
// parameter.

var forbiddenKeyword = regexp.MustCompile(
	`(?i)\b(insert|update|delete|drop|alter|create|truncate|rename|replace|grant|revoke|call|load|handler|lock|unlock|set|use|into)\b`)

var issuesTableRef = regexp.MustCompile(`(?i)\b(from|join)\s+issues\b`)

// GuardQuery validates query and rewrites issues references to a
// repo-scoped subquery aliased back to issues, so column references keep
// working. binds is the number of ? parameters the rewrite introduced;
// the caller supplies the repository name for each.
func GuardQuery(query string) (scoped string, binds int, err error) {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return "", 0, fmt.Errorf("empty query")
	}
	if strings.Contains(trimmed, ";") {
		return "", 0, fmt.Errorf("multiple statements are not allowed")
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), "select") {
		return "", 0, fmt.Errorf("only select statements are allowed")
	}
	if match := forbiddenKeyword.FindString(trimmed); match != "" {
		return "", 0, fmt.Errorf("forbidden keyword %q", strings.ToLower(match))
	}

	refs := issuesTableRef.FindAllStringIndex(trimmed, -1)
	if len(refs) == 0 {
		return "", 0, fmt.Errorf("query must read from the issues table")
	}

	scoped = issuesTableRef.ReplaceAllString(trimmed,
		"$1 (select * from issues where repo_name = ?) as issues")
	return scoped, len(refs), nil
}
