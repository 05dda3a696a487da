package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"
)

// ProbeTimeout bounds a single endpoint probe.
const ProbeTimeout = 5 * time.Second

// Probe dials url, reads the head block and chain ID, and reports the
// endpoint as healthy only if the node answers and serves wantChain. A
// wantChain of 0 accepts any chain.
func Probe(ctx context.Context, url string, wantChain uint64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	ep := Endpoint{URL: url, Checked: true}
	start := time.Now()

	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		ep.Err = err
		return ep
	}
	defer c.Close()

	block, err := c.BlockNumber(ctx)
	ep.Latency = time.Since(start)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.BlockNumber = block

	id, err := c.ChainID(ctx)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.ChainID = id.Uint64()
	if wantChain != 0 && ep.ChainID != wantChain {
		ep.Err = fmt.Errorf("endpoint serves chain %d, want %d", ep.ChainID, wantChain)
		return ep
	}

	ep.Healthy = true
	return ep
}

// ProbeAll probes every url in parallel. Results keep the order of urls.
func ProbeAll(ctx context.Context, urls []string, wantChain uint64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			out[i] = Probe(ctx, u, wantChain)
			return nil
		})
	}
	_ = g.Wait()

	// Stale nodes are unhealthy relative to the freshest answer.
	var best uint64
	for _, e := range out {
		if e.Healthy {
			best = max(best, e.BlockNumber)
		}
	}
	for i := range out {
		if out[i].Healthy && best-out[i].BlockNumber > staleBlockThreshold {
			out[i].Healthy = false
			out[i].Err = fmt.Errorf("node is %d blocks behind", best-out[i].BlockNumber)
		}
	}
	return out
}

// SelectBest picks an RPC URL from urls for chain wantChain with the named
// algorithm. A single URL is returned without probing.
func SelectBest(ctx context.Context, urls []string, wantChain uint64, algorithm string) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	ep, err := NewPicker(ParseAlgorithm(algorithm)).Pick(ProbeAll(ctx, urls, wantChain))
	if err != nil {
		return "", err
	}
	return ep.URL, nil
}
