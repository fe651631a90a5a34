// Package cache keeps recently fetched FHIR resources per patient: a memory
// layer in front of the encrypted local store.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medcalc/medcalc/internal/platform/fhir"
	"github.com/medcalc/medcalc/internal/platform/hipaa"
	"github.com/medcalc/medcalc/internal/platform/store"
	"github.com/medcalc/medcalc/internal/platform/telemetry"
)

// FHIRExpiry is how long fetched FHIR data stays usable.
const FHIRExpiry = 5 * time.Minute

// Stats reports cache occupancy and hit counters.
type Stats struct {
	MemoryItems  int   `json:"memory_items"`
	StoreItems   int   `json:"store_items"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	StoreEnabled bool  `json:"store_enabled"`
}

// Manager caches Observations by (patient, code) and minimized Patients by id.
type Manager struct {
	mem     *gocache.Cache
	backend *store.Secure
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore adds a persistent layer behind the memory cache.
func WithStore(s *store.Secure) Option {
	return func(m *Manager) { m.backend = s }
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func New(logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{ttl: FHIRExpiry, logger: logger.With().Str("component", "cache").Logger()}
	for _, o := range opts {
		o(m)
	}
	m.mem = gocache.New(m.ttl, 2*m.ttl)
	return m
}

func observationPrefix(patientID string) string {
	return "fhir:observation:" + patientID + ":"
}

func observationKey(patientID, code string) string {
	return observationPrefix(patientID) + code
}

func patientKey(patientID string) string {
	return "fhir:patient:" + patientID
}

// CacheObservation stores obs for (patientID, code). Store failures are
// logged and otherwise ignored.
func (m *Manager) CacheObservation(ctx context.Context, patientID, code string, obs fhir.Resource) {
	if patientID == "" || code == "" || obs == nil {
		return
	}
	key := observationKey(patientID, code)
	m.mem.Set(key, obs.Clone(), gocache.DefaultExpiration)
	if m.backend != nil {
		if err := m.backend.PutJSON(ctx, key, obs, m.ttl); err != nil {
			m.logger.Warn().Err(err).Str("code", code).Msg("persist cached observation")
		}
	}
}

// GetCachedObservation returns a copy of the cached resource or nil.
func (m *Manager) GetCachedObservation(ctx context.Context, patientID, code string) fhir.Resource {
	if patientID == "" || code == "" {
		return nil
	}
	key := observationKey(patientID, code)
	if v, ok := m.mem.Get(key); ok {
		m.hit("memory", true)
		return v.(fhir.Resource).Clone()
	}
	m.hit("memory", false)

	if m.backend == nil {
		m.misses.Add(1)
		return nil
	}
	var obs fhir.Resource
	if err := m.backend.GetJSON(ctx, key, &obs); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn().Err(err).Str("code", code).Msg("read cached observation")
		}
		m.metrics.CacheLookup("store", false)
		m.misses.Add(1)
		return nil
	}
	m.metrics.CacheLookup("store", true)
	m.hits.Add(1)
	m.mem.Set(key, obs.Clone(), gocache.DefaultExpiration)
	return obs
}

func (m *Manager) hit(layer string, ok bool) {
	m.metrics.CacheLookup(layer, ok)
	if ok {
		m.hits.Add(1)
	}
}

// CachePatient stores the minimized view of a Patient.
func (m *Manager) CachePatient(ctx context.Context, patient fhir.Resource) {
	min := hipaa.MinimizePatient(patient)
	if min == nil || min.ID == "" {
		return
	}
	key := patientKey(min.ID)
	m.mem.Set(key, *min, gocache.DefaultExpiration)
	if m.backend != nil {
		if err := m.backend.PutJSON(ctx, key, min, m.ttl); err != nil {
			m.logger.Warn().Err(err).Msg("persist cached patient")
		}
	}
}

// GetCachedPatient returns the minimized Patient resource or nil.
func (m *Manager) GetCachedPatient(ctx context.Context, patientID string) fhir.Resource {
	key := patientKey(patientID)
	if v, ok := m.mem.Get(key); ok {
		p := v.(hipaa.MinimalPatient)
		return p.Resource()
	}
	if m.backend == nil {
		return nil
	}
	var p hipaa.MinimalPatient
	if err := m.backend.GetJSON(ctx, key, &p); err != nil {
		return nil
	}
	m.mem.Set(key, p, gocache.DefaultExpiration)
	return p.Resource()
}

// ClearPatientCache drops every entry of one patient from both layers.
func (m *Manager) ClearPatientCache(ctx context.Context, patientID string) {
	if patientID == "" {
		return
	}
	prefix := observationPrefix(patientID)
	for k := range m.mem.Items() {
		if strings.HasPrefix(k, prefix) {
			m.mem.Delete(k)
		}
	}
	m.mem.Delete(patientKey(patientID))

	if m.backend == nil {
		return
	}
	if _, err := m.backend.Backend().DeletePrefix(ctx, prefix); err != nil {
		m.logger.Warn().Err(err).Msg("clear patient cache")
	}
	if err := m.backend.Delete(ctx, patientKey(patientID)); err != nil {
		m.logger.Warn().Err(err).Msg("clear cached patient")
	}
}

// Clear empties the memory layer and every cached FHIR entry in the store.
func (m *Manager) Clear(ctx context.Context) {
	m.mem.Flush()
	if m.backend != nil {
		if _, err := m.backend.Backend().DeletePrefix(ctx, "fhir:"); err != nil {
			m.logger.Warn().Err(err).Msg("clear cache store")
		}
	}
}

func (m *Manager) Stats(ctx context.Context) Stats {
	s := Stats{
		MemoryItems:  m.mem.ItemCount(),
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		StoreEnabled: m.backend != nil,
	}
	if m.backend != nil {
		if keys, err := m.backend.Backend().Keys(ctx, "fhir:"); err == nil {
			s.StoreItems = len(keys)
		}
	}
	return s
}
