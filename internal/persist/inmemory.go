package persist

import "sync"

// InMemory implements Store without touching disk, for tests and the
// "memory" checkpoint backend.
type InMemory struct {
	mu sync.Mutex
	m  map[Key]Value
}

func (s *InMemory) Get(k Key) (Value, error) {
	const method = "InMemory.Get"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		return nil, errorf(method, "%q: %w", k, ErrNotFound)
	}
	v, ok := s.m[k]
	if !ok {
		return nil, errorf(method, "%q: %w", k, ErrNotFound)
	}
	return v, nil
}

func (s *InMemory) Put(k Key, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[Key]Value)
	}
	s.m[k] = v
	return nil
}

func (s *InMemory) Delete(k Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, k)
	return nil
}
