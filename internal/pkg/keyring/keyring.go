package keyring

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

// ErrKeyUnavailable is returned when the install secret cannot be read or
// created. Callers must treat it as fatal; there is no fallback key.
var ErrKeyUnavailable = errors.New("encryption key unavailable")

const (
	secretFile = "install.secret"
	secretLen  = 32
	keyLen     = 32
	saltPrefix = "daybook:owner-key:"
)

// Keyring derives per-owner AES-256 keys from a random install secret
// persisted in the keystore directory. Derivation is deterministic, so the
// same owner always gets the same key for the lifetime of the keystore.
type Keyring struct {
	dir    string
	logger *zap.Logger

	mu     sync.RWMutex
	secret []byte
	keys   map[string][]byte
}

func New(dir string, logger *zap.Logger) *Keyring {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keyring{
		dir:    dir,
		logger: logger.Named("Keyring"),
		keys:   make(map[string][]byte),
	}
}

// Get returns the 32-byte key for the given owner, deriving and caching it on
// first use.
func (k *Keyring) Get(ownerID string) ([]byte, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: empty owner id", ErrKeyUnavailable)
	}

	k.mu.RLock()
	if key, ok := k.keys[ownerID]; ok {
		k.mu.RUnlock()
		return key, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if key, ok := k.keys[ownerID]; ok {
		return key, nil
	}

	secret, err := k.loadSecretLocked()
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey(secret, []byte(saltPrefix+ownerID), 1, 64*1024, 4, keyLen)
	k.keys[ownerID] = key
	return key, nil
}

// Clear drops all cached key material from memory. The persisted install
// secret is untouched, so subsequent Get calls derive the same keys again.
func (k *Keyring) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for owner := range k.keys {
		delete(k.keys, owner)
	}
	k.secret = nil
}

func (k *Keyring) loadSecretLocked() ([]byte, error) {
	if k.secret != nil {
		return k.secret, nil
	}

	path := filepath.Join(k.dir, secretFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != secretLen {
			return nil, fmt.Errorf("%w: install secret at %s has unexpected size %d", ErrKeyUnavailable, path, len(data))
		}
		k.secret = data
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	secret := make([]byte, secretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}

	k.logger.Info("generated new install secret", zap.String("path", path))
	k.secret = secret
	return secret, nil
}
