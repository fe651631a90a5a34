package store

import (
	"context"
	"fmt"
	"time"

	"github.com/medcalc/medcalc/internal/platform/hipaa"
)

// Secure seals JSON values before they reach the underlying Store.
type Secure struct {
	backend Store
	enc     *hipaa.PHIEncryptor
}

func NewSecure(backend Store, enc *hipaa.PHIEncryptor) *Secure {
	return &Secure{backend: backend, enc: enc}
}

// PutJSON encrypts v and stores it under key.
func (s *Secure) PutJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	sealed, err := s.enc.SealJSON(v)
	if err != nil {
		return fmt.Errorf("secure put %s: %w", key, err)
	}
	return s.backend.Set(ctx, key, sealed, ttl)
}

// GetJSON loads and decrypts key into v. A missing key returns ErrNotFound.
func (s *Secure) GetJSON(ctx context.Context, key string, into interface{}) error {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := s.enc.OpenJSON(raw, into); err != nil {
		return fmt.Errorf("secure get %s: %w", key, err)
	}
	return nil
}

func (s *Secure) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func (s *Secure) Backend() Store { return s.backend }
