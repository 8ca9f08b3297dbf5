package notify

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrUnknownEvent       = errors.New("unknown event")
	ErrInvalidEndpoint    = errors.New("invalid endpoint")
)

// Subscriber is an external JSON-RPC service that receives collection events.
type Subscriber struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Endpoint  string    `json:"endpoint"`
	Events    []string  `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is a thread-safe in-memory set of subscribers.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subscribers: make(map[uuid.UUID]*Subscriber)}
}

// Register validates s, assigns its ID and creation time and adds it.
// An empty event list subscribes to every event.
func (r *Registry) Register(s *Subscriber) error {
	u, err := url.Parse(s.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, s.Endpoint)
	}
	if len(s.Events) == 0 {
		s.Events = slices.Clone(Events)
	}
	for _, ev := range s.Events {
		if !slices.Contains(Events, ev) {
			return fmt.Errorf("%w: %q", ErrUnknownEvent, ev)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	r.subscribers[s.ID] = s
	return nil
}

func (r *Registry) Get(id uuid.UUID) (*Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subscribers[id]
	if !ok {
		return nil, fmt.Errorf("subscriber %s: %w", id, ErrSubscriberNotFound)
	}
	return s, nil
}

// List returns all subscribers, oldest first.
func (r *Registry) List() []*Subscriber {
	r.mu.RLock()
	out := make([]*Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		out = append(out, s)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Subscriber) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscribers[id]; !ok {
		return fmt.Errorf("subscriber %s: %w", id, ErrSubscriberNotFound)
	}
	delete(r.subscribers, id)
	return nil
}

// ForEvent returns the subscribers of event.
func (r *Registry) ForEvent(event string) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Subscriber
	for _, s := range r.subscribers {
		if slices.Contains(s.Events, event) {
			out = append(out, s)
		}
	}
	return out
}
