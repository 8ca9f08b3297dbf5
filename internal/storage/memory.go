package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a LedgerStore kept in process memory, used when no
// DATABASE_URL is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	deployments map[string]Deployment
	mints       []Mint
	nextID      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deployments: make(map[string]Deployment)}
}

func (s *MemoryStore) RecordDeployment(ctx context.Context, d Deployment) (*Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.deployments[d.Address]; ok {
		existing.DeployedAt = time.Now()
		s.deployments[d.Address] = existing
		return &existing, nil
	}
	d.DeployedAt = time.Now()
	s.deployments[d.Address] = d
	return &d, nil
}

func (s *MemoryStore) GetDeployment(ctx context.Context, address string) (*Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deployments[address]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) RecordMint(ctx context.Context, m Mint) (*Mint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.nextID++
	m.AddedID = s.nextID
	m.CreatedAt = time.Now()
	s.mints = append(s.mints, m)
	return &m, nil
}

func (s *MemoryStore) ListMints(ctx context.Context, collection string, cursor string, limit int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	pos, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Mint
	for _, m := range s.mints {
		if m.Collection != collection || m.AddedID <= pos.AddedID {
			continue
		}
		out = append(out, m)
		if len(out) > limit {
			break
		}
	}
	return paginate(out, limit), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
