package hipaa

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// EncryptionService owns the master key of the local device store and hands
// out per-purpose encryptors.
type EncryptionService struct {
	master    []byte
	ephemeral bool

	mu         sync.Mutex
	encryptors map[string]*PHIEncryptor
}

// NewEncryptionService creates the service from a 64-character hex key.
//
// An empty key generates a random session key: stored entries are then only
// readable by this process, which matches the session scope of the local
// store. An invalid key is an error so the process refuses to start with a
// misconfigured key.
func NewEncryptionService(key string, logger zerolog.Logger) (*EncryptionService, error) {
	if key == "" {
		master := make([]byte, 32)
		if _, err := rand.Read(master); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		logger.Warn().Msg("HIPAA_ENCRYPTION_KEY is not set, local store uses a session key")
		return &EncryptionService{master: master, ephemeral: true, encryptors: map[string]*PHIEncryptor{}}, nil
	}

	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("HIPAA_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("HIPAA_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
	}

	logger.Info().Msg("local store encryption enabled")
	return &EncryptionService{master: keyBytes, encryptors: map[string]*PHIEncryptor{}}, nil
}

// ForPurpose returns the encryptor for a storage purpose such as
// "audit" or "provenance". Encryptors are created once per purpose.
func (s *EncryptionService) ForPurpose(purpose string) (*PHIEncryptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enc, ok := s.encryptors[purpose]; ok {
		return enc, nil
	}
	key, err := DeriveKey(s.master, purpose)
	if err != nil {
		return nil, err
	}
	enc, err := NewPHIEncryptor(key)
	if err != nil {
		return nil, err
	}
	s.encryptors[purpose] = enc
	return enc, nil
}

// IsEphemeral reports whether the master key was generated for this process.
func (s *EncryptionService) IsEphemeral() bool {
	return s.ephemeral
}
