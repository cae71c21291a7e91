// Package audit captures tenant lifecycle events. Domain services emit
// transport-agnostic events; sinks (in-process store, Kafka) fan out.
package audit

import (
	"context"
	"sync"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Tenant lifecycle actions.
const (
	EventTenantRegistered    = "tenant_registered"
	EventTenantProvisioned   = "tenant_provisioned"
	EventProvisioningFailed  = "tenant_provisioning_failed"
	EventEditionAssigned     = "edition_assigned"
	EventFeaturesOverridden  = "features_overridden"
	EventFeaturesReset       = "features_reset"
	EventAdminIdentitySeeded = "admin_identity_seeded"
)

// Publisher is implemented by every audit sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Store persists events for in-process sinks.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTenant(ctx context.Context, tenantID string) ([]Event, error)
}

// StorePublisher writes events straight to a Store.
type StorePublisher struct {
	store Store
}

func NewStorePublisher(store Store) *StorePublisher {
	return &StorePublisher{store: store}
}

func (p *StorePublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// InMemoryStore keeps events in memory for tests and single-node wiring.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.TenantID == tenantID {
			out = append(out, event)
		}
	}
	return out, nil
}
