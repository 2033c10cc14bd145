package internal

import (
	stderrors "errors"
	"testing"
)

func TestReserveThenSet(t *testing.T) {
	store := CreateEntryStore[string, int](0)

	reserved, err := store.Reserve("a", 10)
	if err != nil || !reserved {
		t.Fatalf("reserve: reserved=%v err=%v", reserved, err)
	}
	if again, _ := store.Reserve("a", 11); again {
		t.Fatalf("second reserve should report false")
	}

	if _, has, err := store.Get("a", 12); has || err != nil {
		t.Fatalf("reserved entry should have no value yet: has=%v err=%v", has, err)
	}

	store.Set("a", 5, 13)
	v, has, err := store.Get("a", 14)
	if err != nil || !has || v != 5 {
		t.Fatalf("get: v=%d has=%v err=%v", v, has, err)
	}
}

func TestMissingEntry(t *testing.T) {
	store := CreateEntryStore[string, int](0)
	_, _, err := store.Get("nope", 0)
	var missing *MissingEntryError
	if !stderrors.As(err, &missing) {
		t.Fatalf("expected MissingEntryError, got %v", err)
	}
}

func TestEntryLimit(t *testing.T) {
	store := CreateEntryStore[int, int](1)
	if _, err := store.Reserve(1, 0); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	_, err := store.Reserve(2, 0)
	var tooMany *TooManyEntriesError
	if !stderrors.As(err, &tooMany) {
		t.Fatalf("expected TooManyEntriesError, got %v", err)
	}
}

func TestExpiryLists(t *testing.T) {
	store := CreateEntryStore[string, int](0)
	store.Set("old", 1, 0)
	store.Set("fresh", 2, 100)
	store.Reserve("pending", 0)

	expired := store.GetExpiredList(50, 0)
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expected [old], got %v", expired)
	}

	unanswered := store.GetUnansweredList(50)
	if len(unanswered) != 1 || unanswered[0] != "pending" {
		t.Fatalf("expected [pending], got %v", unanswered)
	}
}
