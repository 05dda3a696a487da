// Package rpc chooses which JSON-RPC endpoint a network profile talks to.
package rpc

import (
	"errors"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache the fastest winner for this long before scoring again.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm maps a config value to an Algorithm. Empty and unknown
// values mean fastest.
func ParseAlgorithm(s string) Algorithm {
	switch a := Algorithm(s); a {
	case AlgorithmRoundRobin, AlgorithmFailover:
		return a
	}
	return AlgorithmFastest
}

// Endpoint is one RPC URL with whatever a probe learned about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     uint64 // as reported by the node; 0 if unknown
	Healthy     bool   // meaningful only when Checked
	Checked     bool
	Err         error
}

// Picker selects an endpoint according to its algorithm. It is safe for
// concurrent use.
type Picker struct {
	algo Algorithm

	mu          sync.Mutex
	next        int
	cachedURL   string
	cacheExpiry time.Time
	onScore     func()
}

// NewPicker creates a Picker for algo.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo}
}

// OnScore registers a hook called whenever the fastest algorithm scores
// candidates instead of answering from cache.
func (p *Picker) OnScore(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onScore = fn
}

// Pick selects an endpoint from endpoints.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.roundRobin(endpoints)
	case AlgorithmFailover:
		return failover(endpoints)
	default:
		return p.fastest(endpoints)
	}
}

func (p *Picker) fastest(endpoints []Endpoint) (*Endpoint, error) {
	if p.cachedURL != "" && time.Now().Before(p.cacheExpiry) {
		for i := range endpoints {
			if endpoints[i].URL == p.cachedURL && usable(endpoints[i]) {
				return &endpoints[i], nil
			}
		}
	}
	if p.onScore != nil {
		p.onScore()
	}

	var best uint64
	for _, e := range endpoints {
		best = max(best, e.BlockNumber)
	}

	var (
		winner    *Endpoint
		bestScore float64
	)
	for _, e := range candidates(endpoints) {
		if best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(e, best); winner == nil || s > bestScore {
			winner, bestScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = time.Now().Add(cacheTTL)
	return winner, nil
}

func (p *Picker) roundRobin(endpoints []Endpoint) (*Endpoint, error) {
	c := candidates(endpoints)
	if len(c) == 0 {
		return nil, ErrNoHealthyRPC
	}
	i := p.next % len(c)
	p.next = i + 1
	return c[i], nil
}

// failover takes the first endpoint not known to be down, in list order.
func failover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if usable(endpoints[i]) {
			return &endpoints[i], nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// score favours low latency, with a bonus for being at the chain head.
func score(e *Endpoint, best uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}
	if best > 0 {
		s += float64(10 - (best - e.BlockNumber))
	}
	return s
}

func usable(e Endpoint) bool {
	return !e.Checked || e.Healthy
}

// candidates drops endpoints a probe found unhealthy. Unprobed endpoints
// are always candidates.
func candidates(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		if usable(endpoints[i]) {
			out = append(out, &endpoints[i])
		}
	}
	return out
}
