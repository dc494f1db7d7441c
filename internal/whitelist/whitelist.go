// Package whitelist holds the set of sender addresses an importer accepts
// mail from, in either the plain or the extended file format.
package whitelist

import "sort"

// Format selects how a whitelist file is read.
type Format string

const (
	// FormatNormal is one address per line.
	FormatNormal Format = "NORMAL"
	// FormatExtended is one record per line: ADDRESS,{Copyright text},[DIR1,DIR2].
	FormatExtended Format = "EXTENDED"
)

// Entry is the metadata attached to an accepted sender. Only the extended
// format produces entries; plain addresses map to a nil *Entry.
type Entry struct {
	Address     string
	Copyright   string
	Directories []string
}

// Store maps accepted addresses to their entry (or nil). It is built once
// and never modified afterwards.
type Store struct {
	entries map[string]*Entry
}

// New builds a store from the given entries map. The map is copied.
func New(entries map[string]*Entry) *Store {
	s := &Store{entries: make(map[string]*Entry, len(entries))}
	for addr, e := range entries {
		s.entries[addr] = e
	}
	return s
}

// Single returns a store accepting exactly one address with no metadata.
func Single(addr string) *Store {
	return &Store{entries: map[string]*Entry{addr: nil}}
}

// Lookup reports whether addr is accepted and returns its entry, which is
// nil for addresses without metadata. Matching is exact.
func (s *Store) Lookup(addr string) (*Entry, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.entries[addr]
	return e, ok
}

// Len returns the number of accepted addresses.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Addresses returns all accepted addresses in sorted order.
func (s *Store) Addresses() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.entries))
	for addr := range s.entries {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
