package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ChainInfo is a chain the Local wallet knows how to talk to.
type ChainInfo struct {
	ChainID  uint64   `json:"chain_id"`
	Name     string   `json:"name"`
	RPCURLs  []string `json:"rpc_urls"`
	Symbol   string   `json:"symbol,omitempty"`
	Explorer string   `json:"explorer,omitempty"`
}

// Hex returns the 0x-prefixed chain id.
func (c ChainInfo) Hex() string { return hexutil.EncodeUint64(c.ChainID) }

// State is the Local wallet's own storage: active chain, chains the user
// added and the last selected account.
type State struct {
	ActiveChainID uint64      `json:"active_chain_id"`
	Account       string      `json:"account,omitempty"`
	Added         []ChainInfo `json:"added_chains,omitempty"`
}

// StateStore persists wallet State.
type StateStore interface {
	Load() (*State, error)
	Save(*State) error
}

// MemoryState keeps State in memory.
type MemoryState struct {
	mu    sync.Mutex
	state State
}

func (m *MemoryState) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Added = append([]ChainInfo(nil), m.state.Added...)
	return &s, nil
}

func (m *MemoryState) Save(s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = *s
	m.state.Added = append([]ChainInfo(nil), s.Added...)
	return nil
}

// FileState stores State as JSON (provider.json).
type FileState struct {
	path string
}

// NewFileState returns a FileState writing to path.
func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

func (f *FileState) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading wallet state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing wallet state: %w", err)
	}
	return &s, nil
}

func (f *FileState) Save(s *State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
