package internal

import (
	"fmt"
	"sync"
)

type MissingEntryError struct {
	Key string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("Missing entry with key=%s", e.Key)
}

type TooManyEntriesError struct {
	Limit int
}

func (e *TooManyEntriesError) Error() string {
	return fmt.Sprintf("Too many entries are cached (limit %d) - cannot add new entry", e.Limit)
}

type EntryMetadata[V any] struct {
	Mut            sync.RWMutex
	Value          V
	HasValue       bool
	CreatedTime    int64
	UpdatedTime    int64
	LastAccessTime int64
}

// EntryStore is a mutex guarded cache keyed by K with per-entry timestamps, so
// owners can expire stale or unanswered entries.
type EntryStore[K comparable, V any] struct {
	MaxEntries int

	mut_entries sync.RWMutex
	entries     map[K]*EntryMetadata[V]
}

func CreateEntryStore[K comparable, V any](maxEntries int) *EntryStore[K, V] {
	return &EntryStore[K, V]{
		MaxEntries:  maxEntries,
		mut_entries: sync.RWMutex{},
		entries:     make(map[K]*EntryMetadata[V]),
	}
}

func (store *EntryStore[K, V]) Has(key K) bool {
	store.mut_entries.RLock()
	defer store.mut_entries.RUnlock()

	_, has := store.entries[key]
	return has
}

func (store *EntryStore[K, V]) Len() int {
	store.mut_entries.RLock()
	defer store.mut_entries.RUnlock()

	return len(store.entries)
}

// Reserve creates an entry without a value. Reserving an existing key is a
// no-op and reports false.
func (store *EntryStore[K, V]) Reserve(key K, timestamp int64) (bool, error) {
	store.mut_entries.Lock()
	defer store.mut_entries.Unlock()

	if _, has := store.entries[key]; has {
		return false, nil
	}

	if store.MaxEntries > 0 && len(store.entries) >= store.MaxEntries {
		return false, &TooManyEntriesError{Limit: store.MaxEntries}
	}

	store.entries[key] = &EntryMetadata[V]{
		Mut:            sync.RWMutex{},
		CreatedTime:    timestamp,
		UpdatedTime:    timestamp,
		LastAccessTime: timestamp,
	}
	return true, nil
}

func (store *EntryStore[K, V]) Set(key K, value V, timestamp int64) {
	store.mut_entries.Lock()
	defer store.mut_entries.Unlock()

	entry, has := store.entries[key]
	if !has {
		entry = &EntryMetadata[V]{
			Mut:         sync.RWMutex{},
			CreatedTime: timestamp,
		}
		store.entries[key] = entry
	}

	entry.Mut.Lock()
	defer entry.Mut.Unlock()

	entry.Value = value
	entry.HasValue = true
	entry.UpdatedTime = timestamp
	entry.LastAccessTime = timestamp
}

// Get returns the stored value. Entries that are reserved but unanswered
// report has=false without an error.
func (store *EntryStore[K, V]) Get(key K, timestamp int64) (V, bool, error) {
	store.mut_entries.RLock()
	defer store.mut_entries.RUnlock()

	var zero V
	entry, has := store.entries[key]
	if !has {
		return zero, false, &MissingEntryError{Key: fmt.Sprint(key)}
	}

	entry.Mut.Lock()
	defer entry.Mut.Unlock()

	entry.LastAccessTime = timestamp
	if !entry.HasValue {
		return zero, false, nil
	}
	return entry.Value, true, nil
}

func (store *EntryStore[K, V]) Remove(key K) {
	store.mut_entries.Lock()
	defer store.mut_entries.Unlock()
	delete(store.entries, key)
}

func (store *EntryStore[K, V]) Clear() {
	store.mut_entries.Lock()
	defer store.mut_entries.Unlock()
	store.entries = make(map[K]*EntryMetadata[V])
}

// GetExpiredList returns entries whose value was last refreshed before
// updateDeadline or last read before accessDeadline.
func (store *EntryStore[K, V]) GetExpiredList(updateDeadline, accessDeadline int64) []K {
	store.mut_entries.RLock()
	defer store.mut_entries.RUnlock()

	expired := []K{}

	for key, entry := range store.entries {
		entry.Mut.RLock()
		shouldExpire := entry.HasValue && (entry.UpdatedTime < updateDeadline || entry.LastAccessTime < accessDeadline)
		entry.Mut.RUnlock()

		if shouldExpire {
			expired = append(expired, key)
		}
	}

	return expired
}

// GetUnansweredList returns reserved entries that never received a value and
// were created before createDeadline.
func (store *EntryStore[K, V]) GetUnansweredList(createDeadline int64) []K {
	store.mut_entries.RLock()
	defer store.mut_entries.RUnlock()

	unanswered := []K{}

	for key, entry := range store.entries {
		entry.Mut.RLock()
		shouldDrop := !entry.HasValue && entry.CreatedTime < createDeadline
		entry.Mut.RUnlock()

		if shouldDrop {
			unanswered = append(unanswered, key)
		}
	}

	return unanswered
}
