package search

import (
	"reflect"
	"testing"

	"github.com/talc-dev/talc/internal/store"
)

func seeded() (*store.Store, *Index) {
	s := store.New(nil)
	s.UpsertConversation(store.Conversation{ID: "c1", Name: "Alice", Folder: store.FolderMain, LastActivity: 400})
	s.UpsertConversation(store.Conversation{ID: "c2", Name: "Alicia", Folder: store.FolderMain, LastActivity: 300})
	s.UpsertConversation(store.Conversation{ID: "c3", Name: "Malice Crew", Folder: store.FolderMain, LastActivity: 200})
	s.UpsertConversation(store.Conversation{ID: "c4", Name: "Bob", Folder: store.FolderMain, LastActivity: 100})
	s.UpsertConversation(store.Conversation{ID: "c5", Name: "Archived Ally", Folder: store.FolderArchived, LastActivity: 500})
	return s, New(s)
}

func TestEmptyQueryMatchesStoreOrder(t *testing.T) {
	s, ix := seeded()

	got := ix.Query(store.FolderMain, "")
	var want []string
	for _, c := range s.List(store.FolderMain) {
		want = append(want, c.ID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query(\"\") = %v, want %v", got, want)
	}
}

func TestPrefixRanksBeforeSubstring(t *testing.T) {
	_, ix := seeded()

	got := ix.Query(store.FolderMain, "ali")
	want := []string{"c1", "c2", "c3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query(ali) = %v, want %v (prefix tier first, store order within)", got, want)
	}
}

func TestQueryIsCaseInsensitive(t *testing.T) {
	_, ix := seeded()

	if got := ix.Query(store.FolderMain, "ALICE"); len(got) == 0 || got[0] != "c1" {
		t.Errorf("Query(ALICE) = %v, want [c1 ...]", got)
	}
}

func TestQueryIsSubsetOfUnfiltered(t *testing.T) {
	_, ix := seeded()

	all := map[string]bool{}
	for _, id := range ix.Query(store.FolderMain, "") {
		all[id] = true
	}
	for _, q := range []string{"a", "li", "bob", "zzz"} {
		for _, id := range ix.Query(store.FolderMain, q) {
			if !all[id] {
				t.Errorf("Query(%q) returned %s, not in unfiltered set", q, id)
			}
		}
	}
}

func TestFolderScoping(t *testing.T) {
	_, ix := seeded()

	got := ix.Query(store.FolderArchived, "ally")
	if len(got) != 1 || got[0] != "c5" {
		t.Errorf("Query(archived, ally) = %v, want [c5]", got)
	}
	if got := ix.Query(store.FolderMain, "ally"); len(got) != 0 {
		t.Errorf("Query(main, ally) = %v, want []", got)
	}
}

func TestStoreChangeInvalidatesCache(t *testing.T) {
	s, ix := seeded()

	before := ix.Query(store.FolderMain, "ali")
	s.UpsertConversation(store.Conversation{ID: "c6", Name: "Alina", Folder: store.FolderMain, LastActivity: 999})

	after := ix.Query(store.FolderMain, "ali")
	if reflect.DeepEqual(before, after) {
		t.Errorf("cache not invalidated: %v", after)
	}
	if after[0] != "c6" {
		t.Errorf("Query after change = %v, want c6 first (newest, prefix tier)", after)
	}
}

func TestRepeatQueryReturnsCachedResult(t *testing.T) {
	_, ix := seeded()

	a := ix.Query(store.FolderMain, "ali")
	b := ix.Query(store.FolderMain, "ali")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated query differs: %v vs %v", a, b)
	}
}
