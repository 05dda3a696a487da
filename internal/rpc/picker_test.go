package rpc_test

import (
	"testing"
	"time"

	"github.com/Mohsinsiddi/zkcstake/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	publicNode = "https://ethereum-sepolia-rpc.publicnode.com"
	drpc       = "https://sepolia.drpc.org"
	infura     = "https://sepolia.infura.io/v3/key"
)

func probed(url string, ms int, block uint64, healthy bool) rpc.Endpoint {
	return rpc.Endpoint{
		URL:         url,
		Latency:     time.Duration(ms) * time.Millisecond,
		BlockNumber: block,
		ChainID:     11155111,
		Healthy:     healthy,
		Checked:     true,
	}
}

// benchmarked carries latency and height but no health verdict.
func benchmarked(url string, ms int, block uint64) rpc.Endpoint {
	return rpc.Endpoint{URL: url, Latency: time.Duration(ms) * time.Millisecond, BlockNumber: block}
}

func TestPickerPick(t *testing.T) {
	cases := []struct {
		name      string
		algo      rpc.Algorithm
		endpoints []rpc.Endpoint
		want      string
		wantErr   error
	}{
		{
			name: "fastest by latency",
			algo: rpc.AlgorithmFastest,
			endpoints: []rpc.Endpoint{
				benchmarked(publicNode, 210, 7_000_000),
				benchmarked(drpc, 35, 7_000_000),
				benchmarked(infura, 90, 7_000_000),
			},
			want: drpc,
		},
		{
			name: "lagging node loses despite latency",
			algo: rpc.AlgorithmFastest,
			endpoints: []rpc.Endpoint{
				probed(publicNode, 60, 7_000_000, true),
				probed(drpc, 12, 6_999_990, true),
			},
			want: publicNode,
		},
		{
			name: "unhealthy nodes skipped",
			algo: rpc.AlgorithmFastest,
			endpoints: []rpc.Endpoint{
				probed(drpc, 5, 7_000_000, false),
				probed(infura, 120, 7_000_000, true),
			},
			want: infura,
		},
		{
			name: "failover keeps configured order",
			algo: rpc.AlgorithmFailover,
			endpoints: []rpc.Endpoint{
				probed(publicNode, 0, 100, false),
				probed(infura, 300, 100, true),
				probed(drpc, 10, 100, true),
			},
			want: infura,
		},
		{
			name: "all down",
			algo: rpc.AlgorithmFastest,
			endpoints: []rpc.Endpoint{
				probed(publicNode, 100, 0, false),
				probed(drpc, 200, 0, false),
			},
			wantErr: rpc.ErrNoHealthyRPC,
		},
		{
			name:    "no endpoints",
			algo:    rpc.AlgorithmFailover,
			wantErr: rpc.ErrNoHealthyRPC,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rpc.NewPicker(tc.algo).Pick(tc.endpoints)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.URL)
		})
	}
}

func TestPickerRoundRobinVisitsEveryNode(t *testing.T) {
	endpoints := []rpc.Endpoint{
		probed(publicNode, 0, 100, true),
		probed(drpc, 0, 100, true),
		probed(infura, 0, 100, true),
	}
	p := rpc.NewPicker(rpc.AlgorithmRoundRobin)

	seen := make([]string, 0, 4)
	for range 4 {
		e, err := p.Pick(endpoints)
		require.NoError(t, err)
		seen = append(seen, e.URL)
	}
	assert.ElementsMatch(t, []string{publicNode, drpc, infura}, seen[:3])
	assert.Equal(t, seen[0], seen[3], "wraps around")
}

func TestPickerScoresOncePerTTL(t *testing.T) {
	scored := 0
	p := rpc.NewPicker(rpc.AlgorithmFastest)
	p.OnScore(func() { scored++ })

	endpoints := []rpc.Endpoint{benchmarked(drpc, 30, 100)}
	for range 3 {
		_, err := p.Pick(endpoints)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, scored)
}

func TestPickerDropsCachedWinnerWhenItFails(t *testing.T) {
	p := rpc.NewPicker(rpc.AlgorithmFastest)
	first, err := p.Pick([]rpc.Endpoint{
		probed(drpc, 10, 100, true),
		probed(infura, 90, 100, true),
	})
	require.NoError(t, err)
	require.Equal(t, drpc, first.URL)

	next, err := p.Pick([]rpc.Endpoint{
		probed(drpc, 10, 100, false),
		probed(infura, 90, 100, true),
	})
	require.NoError(t, err)
	assert.Equal(t, infura, next.URL)
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]rpc.Algorithm{
		"round-robin": rpc.AlgorithmRoundRobin,
		"failover":    rpc.AlgorithmFailover,
		"fastest":     rpc.AlgorithmFastest,
		"":            rpc.AlgorithmFastest,
		"random":      rpc.AlgorithmFastest,
	} {
		assert.Equal(t, want, rpc.ParseAlgorithm(in), in)
	}
}
