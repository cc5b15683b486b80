package record

import "sort"

// Values maps attribute names to numeric values.
type Values map[string]float64

// Store is an ordered mapping from keys to attribute values. Key insertion order
// and the first-seen order of attribute names are preserved.
type Store struct {
	keys  []Key
	rows  map[Key]Values
	attrs []string
	seen  map[string]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rows: make(map[Key]Values),
		seen: make(map[string]bool),
	}
}

// Len returns the number of keys.
func (s *Store) Len() int { return len(s.keys) }

// Keys returns the keys in insertion order.
func (s *Store) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// Attributes returns every attribute name in first-seen order.
func (s *Store) Attributes() []string {
	out := make([]string, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Has reports whether the key exists.
func (s *Store) Has(k Key) bool {
	_, ok := s.rows[k]
	return ok
}

// Get returns the values stored under k. The returned map is owned by the store.
func (s *Store) Get(k Key) (Values, bool) {
	v, ok := s.rows[k]
	return v, ok
}

// Value returns one attribute of k, or 0 if the key or attribute is absent.
func (s *Store) Value(k Key, attr string) float64 {
	return s.rows[k][attr]
}

// Set stores a single attribute, creating the row if needed.
func (s *Store) Set(k Key, attr string, v float64) {
	s.row(k)[attr] = v
	s.note(attr)
}

// Put replaces the values of k. New attribute names are registered in sorted order.
func (s *Store) Put(k Key, v Values) {
	row := make(Values, len(v))
	for name, val := range v {
		row[name] = val
	}
	if _, ok := s.rows[k]; !ok {
		s.keys = append(s.keys, k)
	}
	s.rows[k] = row
	s.noteAll(v)
}

// Add sums v into the row of k.
func (s *Store) Add(k Key, v Values) {
	row := s.row(k)
	for name, val := range v {
		row[name] += val
	}
	s.noteAll(v)
}

// Merge copies every attribute of other onto the matching keys of s. Keys not
// yet present are appended. Attributes of other overwrite those of s.
func (s *Store) Merge(other *Store) {
	for _, attr := range other.attrs {
		s.note(attr)
	}
	for _, k := range other.keys {
		row := s.row(k)
		for name, val := range other.rows[k] {
			row[name] = val
		}
	}
}

// Delete removes attribute names from every row.
func (s *Store) Delete(attrs ...string) {
	drop := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		drop[a] = true
	}
	for _, row := range s.rows {
		for a := range drop {
			delete(row, a)
		}
	}
	kept := s.attrs[:0]
	for _, a := range s.attrs {
		if drop[a] {
			delete(s.seen, a)
			continue
		}
		kept = append(kept, a)
	}
	s.attrs = kept
}

// Filter returns a new store with copies of the rows whose key satisfies keep.
func (s *Store) Filter(keep func(Key) bool) *Store {
	out := NewStore()
	out.attrs = append(out.attrs, s.attrs...)
	for _, a := range s.attrs {
		out.seen[a] = true
	}
	for _, k := range s.keys {
		if keep(k) {
			out.Put(k, s.rows[k])
		}
	}
	return out
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	return s.Filter(func(Key) bool { return true })
}

func (s *Store) row(k Key) Values {
	row, ok := s.rows[k]
	if !ok {
		row = make(Values)
		s.rows[k] = row
		s.keys = append(s.keys, k)
	}
	return row
}

func (s *Store) note(attr string) {
	if !s.seen[attr] {
		s.seen[attr] = true
		s.attrs = append(s.attrs, attr)
	}
}

func (s *Store) noteAll(v Values) {
	var fresh []string
	for name := range v {
		if !s.seen[name] {
			fresh = append(fresh, name)
		}
	}
	sort.Strings(fresh)
	for _, name := range fresh {
		s.note(name)
	}
}
