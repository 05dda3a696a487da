package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const keychainService = "zkcstake"

// ErrKeystoreUnavailable is returned when no keyring backend could be opened.
var ErrKeystoreUnavailable = errors.New("keystore not available")

// KeystoreBackend stores and retrieves private keys by reference.
type KeystoreBackend interface {
	Store(name, hexKey string) (string, error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access. Retrieved keys are served from the
// session cache first so an unlocked session does not prompt per transaction.
type Keystore struct {
	ring    keyring.Keyring
	session *SessionCache
}

// DefaultKeystore returns a keystore backed by the OS keychain. dir is used
// for the encrypted file fallback on headless hosts.
func DefaultKeystore(dir string) *Keystore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keys"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, _ = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          cfg.FileDir,
			FilePasswordFunc: keyring.TerminalPrompt,
		})
	}

	return &Keystore{ring: ring, session: NewSessionCache(DefaultSessionPath(), DefaultSessionTTL)}
}

// NewKeystore wraps an already opened keyring. A nil session disables
// caching.
func NewKeystore(ring keyring.Keyring, session *SessionCache) *Keystore {
	return &Keystore{ring: ring, session: session}
}

// Session returns the unlocked-key cache, or nil.
func (k *Keystore) Session() *SessionCache { return k.session }

// Store saves a private key for a wallet name and returns a reference key.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	ref := keyRef(name)
	err := k.ring.Set(keyring.Item{
		Key:   ref,
		Data:  []byte(hexKey),
		Label: "zkcstake wallet " + name,
	})
	if err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by its reference. An env override
// (ZKCSTAKE_KEY_<NAME>) wins, then the session cache, then the keychain.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if v := os.Getenv(envKeyName(ref)); v != "" {
		return normaliseHexKey(v), nil
	}
	if k.session != nil {
		if v, ok := k.session.Get(ref); ok {
			return v, nil
		}
	}
	if k.ring == nil {
		return "", ErrKeystoreUnavailable
	}
	item, err := k.ring.Get(ref)
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key from the keychain and the session cache.
func (k *Keystore) Delete(ref string) error {
	if k.session != nil {
		k.session.Remove(ref)
	}
	if k.ring == nil {
		return nil
	}
	err := k.ring.Remove(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Unlock reads every ref from the keychain once and caches the keys in the
// session file. It returns the refs that could not be read.
func (k *Keystore) Unlock(refs []string) ([]string, error) {
	if k.session == nil {
		return refs, errors.New("keystore has no session cache")
	}
	keys := make(map[string]string, len(refs))
	var failed []string
	for _, ref := range refs {
		v, err := k.Retrieve(ref)
		if err != nil {
			failed = append(failed, ref)
			continue
		}
		keys[ref] = v
	}
	return failed, k.session.PutAll(keys)
}

func keyRef(name string) string { return keychainService + "." + name }

// envKeyName maps "zkcstake.my-wallet" to ZKCSTAKE_KEY_MY_WALLET.
func envKeyName(ref string) string {
	name := strings.TrimPrefix(ref, keychainService+".")
	name = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
	return "ZKCSTAKE_KEY_" + name
}

// InMemoryKeystore stores keys in memory (for tests).
type InMemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Store(name, hexKey string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ref := keyRef(name)
	k.data[ref] = hexKey
	return ref, nil
}

func (k *InMemoryKeystore) Retrieve(ref string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[ref]
	if !ok {
		return "", fmt.Errorf("key not found: %s", ref)
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, ref)
	return nil
}
