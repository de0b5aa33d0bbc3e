// Package completion tracks which map features a character has completed.
// Features are identified by the composite key "kind#id".
package completion

import (
	"sort"
	"sync"
)

func Key(kind, id string) string {
	return kind + "#" + id
}

// Set is an immutable set of completed feature keys.
type Set map[string]struct{}

func NewSet(keys ...string) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source provides the completed set of a character.
type Source interface {
	Completed(characterID string) Set
}

// Store keeps completion sets in memory.
type Store struct {
	mu   sync.RWMutex
	sets map[string]Set
}

func NewStore() *Store {
	return &Store{sets: make(map[string]Set)}
}

// Completed returns a copy of the character's set; unknown characters have
// an empty set.
func (s *Store) Completed(characterID string) Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.sets[characterID]
	out := make(Set, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}

func (s *Store) Replace(characterID string, set Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[characterID] = set
}

func (s *Store) Mark(characterID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[characterID]
	if !ok {
		set = make(Set)
		s.sets[characterID] = set
	}
	set[key] = struct{}{}
}

func (s *Store) Unmark(characterID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[characterID], key)
}
