package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an unlocked key stays cached.
const DefaultSessionTTL = 8 * time.Hour

// SessionCache keeps unlocked private keys in a 0600 file so a run of
// approve, stake and delegate commands does not hit the keychain each time.
// Entries expire after the TTL and are dropped on the next read.
type SessionCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
}

type sessionEntry struct {
	Key     string    `json:"key"`
	Expires time.Time `json:"expires"`
}

// DefaultSessionPath is the session file under the user cache directory:
//
//	macOS:   ~/Library/Caches/zkcstake/session.json
//	Linux:   ~/.cache/zkcstake/session.json
//	Windows: %LocalAppData%\zkcstake\session.json
func DefaultSessionPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, keychainService, "session.json")
}

// NewSessionCache returns a cache stored at path. A non-positive ttl uses
// DefaultSessionTTL.
func NewSessionCache(path string, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCache{path: path, ttl: ttl, now: time.Now}
}

// Get returns the cached key for ref if it has not expired.
func (c *SessionCache) Get(ref string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load()[ref]
	if !ok {
		return "", false
	}
	return e.Key, true
}

// PutAll caches every key with a fresh expiry in one read and write.
func (c *SessionCache) PutAll(keys map[string]string) error {
	if len(keys) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.load()
	exp := c.now().Add(c.ttl)
	for ref, k := range keys {
		m[ref] = sessionEntry{Key: k, Expires: exp}
	}
	return c.save(m)
}

// Remove evicts one key.
func (c *SessionCache) Remove(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.load()
	if _, ok := m[ref]; !ok {
		return
	}
	delete(m, ref)
	_ = c.save(m) // best-effort
}

// Clear deletes the session file.
func (c *SessionCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Expiry returns when the last live entry expires, or the zero time when
// nothing is cached.
func (c *SessionCache) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	var last time.Time
	for _, e := range c.load() {
		if e.Expires.After(last) {
			last = e.Expires
		}
	}
	return last
}

// Active reports whether any unexpired key is cached.
func (c *SessionCache) Active() bool { return !c.Expiry().IsZero() }

// load reads the live entries. Expired or unreadable entries are treated
// as absent.
func (c *SessionCache) load() map[string]sessionEntry {
	m := make(map[string]sessionEntry)
	data, err := os.ReadFile(c.path)
	if err != nil {
		return m
	}
	var raw map[string]sessionEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return m
	}
	now := c.now()
	for ref, e := range raw {
		if e.Key != "" && now.Before(e.Expires) {
			m[ref] = e
		}
	}
	return m
}

func (c *SessionCache) save(m map[string]sessionEntry) error {
	if len(m) == 0 {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return err
	}
	_ = os.Chmod(c.path, 0o600)
	return nil
}
