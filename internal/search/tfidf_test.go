package search

import "testing"

func fixtureIndex() *Index {
	ix := NewIndex()
	ix.Add(1, "Crash when parsing large JSON payload")
	ix.Add(2, "Memory leak in websocket connection handling")
	ix.Add(3, "JSON parser panics on empty object")
	return ix
}

func TestSearchRanksByOverlap(t *testing.T) {
	ix := fixtureIndex()
	got := ix.Search("json parsing crash", 10)
	if len(got) != 2 {
		t.Fatalf("matches = %v, want 2", got)
	}
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("order = %d,%d, want 1,3", got[0].ID, got[1].ID)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %v", got)
	}
	if got[0].Score <= 0 || got[0].Score > 1.0000001 {
		t.Fatalf("score out of range: %v", got[0].Score)
	}
}

func TestSearchNoOverlap(t *testing.T) {
	ix := fixtureIndex()
	if got := ix.Search("database migration timeout", 10); len(got) != 0 {
		t.Fatalf("matches = %v, want none", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	ix := fixtureIndex()
	if got := ix.Search("", 10); got == nil || len(got) != 0 {
		t.Fatalf("matches = %#v, want empty non-nil", got)
	}
	if got := ix.Search("the an of", 10); len(got) != 0 {
		t.Fatalf("stopword query matched: %v", got)
	}
}

func TestSearchCapsResults(t *testing.T) {
	ix := NewIndex()
	for i := int64(1); i <= 5; i++ {
		ix.Add(i, "websocket timeout under load")
	}
	got := ix.Search("websocket timeout", 3)
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ix := NewIndex()
	ix.Add(7, "alpha beta gamma delta")
	ix.Add(4, "alpha beta gamma delta")
	got := ix.Search("alpha", 10)
	if len(got) != 2 || got[0].ID != 7 || got[1].ID != 4 {
		t.Fatalf("matches = %v, want ids 7 then 4", got)
	}
	if got[0].Score != got[1].Score {
		t.Fatalf("identical docs scored differently: %v", got)
	}
}

func TestIndexLen(t *testing.T) {
	ix := fixtureIndex()
	if ix.Len() != 3 {
		t.Fatalf("len = %d, want 3", ix.Len())
	}
	ix.Add(9, "")
	if ix.Len() != 4 {
		t.Fatalf("len = %d, want 4", ix.Len())
	}
	if got := ix.Search("empty", 10); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("empty doc should never match: %v", got)
	}
}
