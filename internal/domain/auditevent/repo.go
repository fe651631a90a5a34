package auditevent

import (
	"context"
	"errors"
	"fmt"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/store"
)

// PendingKey is the local store key holding events not yet forwarded.
const PendingKey = "medcalc_audit_pending"

// PendingRepository persists the queue of events awaiting forwarding.
type PendingRepository interface {
	Load(ctx context.Context) ([]AuditEvent, error)
	Save(ctx context.Context, events []AuditEvent) error
	Clear(ctx context.Context) error
}

// Forwarder sends an event to the audit FHIR server. *fhirclient.Client
// satisfies it.
type Forwarder interface {
	Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error)
}

// PendingRepoStore keeps the queue encrypted under PendingKey.
type PendingRepoStore struct {
	secure *store.Secure
}

func NewPendingRepoStore(secure *store.Secure) *PendingRepoStore {
	return &PendingRepoStore{secure: secure}
}

func (r *PendingRepoStore) Load(ctx context.Context) ([]AuditEvent, error) {
	var events []AuditEvent
	err := r.secure.GetJSON(ctx, PendingKey, &events)
	if errors.Is(err, store.ErrNotFound) {
		return []AuditEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending audit events: %w", err)
	}
	return events, nil
}

func (r *PendingRepoStore) Save(ctx context.Context, events []AuditEvent) error {
	if err := r.secure.PutJSON(ctx, PendingKey, events, 0); err != nil {
		return fmt.Errorf("save pending audit events: %w", err)
	}
	return nil
}

func (r *PendingRepoStore) Clear(ctx context.Context) error {
	err := r.secure.Delete(ctx, PendingKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clear pending audit events: %w", err)
	}
	return nil
}
