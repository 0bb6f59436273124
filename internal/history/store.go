package history

import (
	"fmt"

	"github.com/google/uuid"

	"hreq/internal/model"
)

// Entry is a record together with its position under its method.
type Entry struct {
	Label  string
	Index  int // 1-based
	Record model.RequestRecord
}

// LoadMode chooses what happens to the current entries when a file is loaded.
type LoadMode int

const (
	LoadReplace LoadMode = iota
	LoadMerge
)

func (m LoadMode) String() string {
	if m == LoadMerge {
		return "merge"
	}
	return "replace"
}

// Store keeps request records grouped by method in insertion order.
// It has a single owner and does no locking.
type Store struct {
	entries map[model.Method][]model.RequestRecord
}

// NewStore creates an empty history.
func NewStore() *Store {
	return &Store{entries: make(map[model.Method][]model.RequestRecord)}
}

// Label formats the display label of the n-th (1-based) entry.
func Label(method model.Method, n int) string {
	return fmt.Sprintf("%s #%d", method, n)
}

// Append adds rec under its method, assigning an ID when it has none.
func (s *Store) Append(rec model.RequestRecord) Entry {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	s.entries[rec.Method] = append(s.entries[rec.Method], rec)
	n := len(s.entries[rec.Method])
	return Entry{Label: Label(rec.Method, n), Index: n, Record: rec}
}

// Entries returns a copy of the method's entries with their current labels.
func (s *Store) Entries(method model.Method) []Entry {
	records := s.entries[method]
	out := make([]Entry, len(records))
	for i, rec := range records {
		out[i] = Entry{Label: Label(method, i+1), Index: i + 1, Record: rec}
	}
	return out
}

// Records returns a copy of the method's records.
func (s *Store) Records(method model.Method) []model.RequestRecord {
	records := s.entries[method]
	out := make([]model.RequestRecord, len(records))
	copy(out, records)
	return out
}

// Count returns the number of entries under method.
func (s *Store) Count(method model.Method) int {
	return len(s.entries[method])
}

// Len returns the total number of entries.
func (s *Store) Len() int {
	total := 0
	for _, records := range s.entries {
		total += len(records)
	}
	return total
}

// Get returns the n-th (1-based) entry under method.
func (s *Store) Get(method model.Method, n int) (Entry, bool) {
	records := s.entries[method]
	if n < 1 || n > len(records) {
		return Entry{}, false
	}
	return Entry{Label: Label(method, n), Index: n, Record: records[n-1]}, true
}

// Find looks an entry up by record ID.
func (s *Store) Find(id string) (Entry, bool) {
	for _, method := range model.Methods {
		for i, rec := range s.entries[method] {
			if rec.ID == id {
				return Entry{Label: Label(method, i+1), Index: i + 1, Record: rec}, true
			}
		}
	}
	return Entry{}, false
}

// Delete removes the n-th (1-based) entry under method. Later entries move up
// one position, so their labels stay contiguous.
func (s *Store) Delete(method model.Method, n int) (model.RequestRecord, bool) {
	records := s.entries[method]
	if n < 1 || n > len(records) {
		return model.RequestRecord{}, false
	}
	removed := records[n-1]

	copy(records[n-1:], records[n:])
	s.entries[method] = records[:len(records)-1]
	return removed, true
}

// DeleteByID removes the entry with the given record ID.
func (s *Store) DeleteByID(id string) (model.RequestRecord, bool) {
	entry, ok := s.Find(id)
	if !ok {
		return model.RequestRecord{}, false
	}
	return s.Delete(entry.Record.Method, entry.Index)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.entries = make(map[model.Method][]model.RequestRecord)
}

// Load brings other's entries into s, replacing or appending per mode.
func (s *Store) Load(other *Store, mode LoadMode) {
	if mode == LoadReplace {
		s.Clear()
	}
	for _, method := range model.Methods {
		for _, rec := range other.entries[method] {
			if _, dup := s.Find(rec.ID); dup {
				rec.ID = ""
			}
			s.Append(rec)
		}
	}
}
