package credential

import "sync"

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu  sync.RWMutex
	rec Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Token
}

func (s *MemoryStore) Load() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecord(s.rec)
}

func (s *MemoryStore) Save(rec Record) error {
	s.mu.Lock()
	s.rec = copyRecord(rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.rec = Record{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ClearIf(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.rec.Token != token {
		return false, nil
	}
	s.rec = Record{}
	return true, nil
}

func copyRecord(rec Record) Record {
	if rec.User != nil {
		u := *rec.User
		rec.User = &u
	}
	return rec
}
