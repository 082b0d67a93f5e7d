package claim

import "sync"

// Set is a process-wide set of already-claimed URLs. It is constructed
// once at pipeline start and passed to every component that downloads
// exhibits, so the same URL is never fetched twice concurrently.
type Set struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewSet builds an empty claim set.
func NewSet() *Set {
	return &Set{claimed: make(map[string]struct{})}
}

// Claim records the url and reports whether it was newly claimed.
func (s *Set) Claim(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[url]; ok {
		return false
	}
	s.claimed[url] = struct{}{}
	return true
}

// Contains reports whether the url has already been claimed.
func (s *Set) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.claimed[url]
	return ok
}

// Len returns the number of claimed URLs.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claimed)
}
