package crawler

import (
	"sync"

	"github.com/3leaps/bucketglob/pkg/provider"
)

// MatchSet holds matched objects keyed by Key, remembering the first
// observation of each key and the order keys were added.
//
// MatchSet is safe for concurrent use. Iteration order is insertion order,
// so callers that add in a fixed order get a deterministic result.
type MatchSet struct {
	mu      sync.Mutex
	index   map[string]int
	objects []provider.ObjectSummary
	bytes   int64
}

// NewMatchSet returns an empty set.
func NewMatchSet() *MatchSet {
	return &MatchSet{index: make(map[string]int)}
}

// Add inserts obj unless its key is already present. It reports whether
// the object was added.
func (s *MatchSet) Add(obj provider.ObjectSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[obj.Key]; ok {
		return false
	}
	s.index[obj.Key] = len(s.objects)
	s.objects = append(s.objects, obj)
	s.bytes += obj.Size
	return true
}

// Get returns the first object observed for key.
func (s *MatchSet) Get(key string) (provider.ObjectSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return provider.ObjectSummary{}, false
	}
	return s.objects[i], true
}

// Len returns the number of distinct keys.
func (s *MatchSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Bytes returns the summed size of the held objects.
func (s *MatchSet) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Objects returns a copy of the held objects in insertion order.
func (s *MatchSet) Objects() []provider.ObjectSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]provider.ObjectSummary, len(s.objects))
	copy(out, s.objects)
	return out
}
