package provenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/store"
)

// PendingKey is the local store key holding records not yet forwarded.
const PendingKey = "medcalc_provenance_pending"

// PendingRepository persists records awaiting forwarding.
type PendingRepository interface {
	Load(ctx context.Context) ([]Provenance, error)
	Save(ctx context.Context, records []Provenance) error
	Clear(ctx context.Context) error
}

// Forwarder sends a record to the FHIR server. *fhirclient.Client satisfies it.
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

func (r *PendingRepoStore) Load(ctx context.Context) ([]Provenance, error) {
	var records []Provenance
	err := r.secure.GetJSON(ctx, PendingKey, &records)
	if errors.Is(err, store.ErrNotFound) {
		return []Provenance{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending provenance: %w", err)
	}
	return records, nil
}

func (r *PendingRepoStore) Save(ctx context.Context, records []Provenance) error {
	if err := r.secure.PutJSON(ctx, PendingKey, records, 0); err != nil {
		return fmt.Errorf("save pending provenance: %w", err)
	}
	return nil
}

func (r *PendingRepoStore) Clear(ctx context.Context) error {
	err := r.secure.Delete(ctx, PendingKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clear pending provenance: %w", err)
	}
	return nil
}

type memoryPendingRepo struct {
	records []Provenance
}

func (m *memoryPendingRepo) Load(_ context.Context) ([]Provenance, error) {
	out := make([]Provenance, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryPendingRepo) Save(_ context.Context, records []Provenance) error {
	m.records = append([]Provenance(nil), records...)
	return nil
}

func (m *memoryPendingRepo) Clear(_ context.Context) error {
	m.records = nil
	return nil
}
