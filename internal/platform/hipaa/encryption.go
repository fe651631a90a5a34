package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// storagePrefix marks values written by SealJSON.
const storagePrefix = "enc:"

// PHIEncryptor provides AES-256-GCM encryption for values kept in the local
// device store.
type PHIEncryptor struct {
	aead cipher.AEAD
}

// NewPHIEncryptor creates a new PHIEncryptor with the given 32-byte AES-256 key.
func NewPHIEncryptor(key []byte) (*PHIEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phi encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phi encryptor: create GCM: %w", err)
	}

	return &PHIEncryptor{aead: aead}, nil
}

// DeriveKey expands a master key into a 32-byte key bound to purpose, so the
// audit queue and provenance queue never share a key.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) == 0 {
		return nil, fmt.Errorf("derive key: empty master key")
	}
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, master, nil, []byte("medcalc/"+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key %q: %w", purpose, err)
	}
	return key, nil
}

// Encrypt returns base64(nonce || ciphertext).
func (e *PHIEncryptor) Encrypt(plaintext string) (string, error) {
	encrypted, err := e.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (e *PHIEncryptor) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("phi decrypt: base64 decode: %w", err)
	}

	plaintext, err := e.DecryptBytes(data)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes returns the nonce prepended to the ciphertext.
func (e *PHIEncryptor) EncryptBytes(data []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("phi encrypt: generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, data, nil), nil
}

func (e *PHIEncryptor) DecryptBytes(data []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("phi decrypt: ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("phi decrypt: %w", err)
	}
	return plaintext, nil
}

// SealJSON encodes v as JSON and encrypts it into a prefixed storage value.
func (e *PHIEncryptor) SealJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("seal: encode: %w", err)
	}
	ct, err := e.Encrypt(string(raw))
	if err != nil {
		return "", err
	}
	return storagePrefix + ct, nil
}

// OpenJSON reverses SealJSON. Values without the prefix are read as plain
// JSON so entries written before encryption was enabled stay readable.
func (e *PHIEncryptor) OpenJSON(stored string, into interface{}) error {
	payload := stored
	if strings.HasPrefix(stored, storagePrefix) {
		pt, err := e.Decrypt(strings.TrimPrefix(stored, storagePrefix))
		if err != nil {
			return err
		}
		payload = pt
	}
	if err := json.Unmarshal([]byte(payload), into); err != nil {
		return fmt.Errorf("open: decode: %w", err)
	}
	return nil
}
