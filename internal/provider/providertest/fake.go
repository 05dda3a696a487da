// Package providertest offers a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Mohsinsiddi/zkcstake/internal/provider"
)

// Handler answers one method. The returned value is JSON-encoded.
type Handler func(params []any) (any, error)

// Call records one Request.
type Call struct {
	Method string
	Params []any
}

// Fake is a Provider whose methods are answered by registered handlers.
// Unhandled methods fail with an unsupported-method error.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call

	Accounts provider.Emitter[[]string]
	Chains   provider.Emitter[string]
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// Handle registers h for method, replacing any earlier handler.
func (f *Fake) Handle(method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
	return f
}

// Returns registers a fixed result for method.
func (f *Fake) Returns(method string, result any) *Fake {
	return f.Handle(method, func([]any) (any, error) { return result, nil })
}

// Fails registers a fixed error for method.
func (f *Fake) Fails(method string, err error) *Fake {
	return f.Handle(method, func([]any) (any, error) { return nil, err })
}

// Calls returns the recorded requests in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded requests for method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Request implements provider.Provider.
func (f *Fake) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	h, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return nil, provider.NewError(provider.CodeUnsupported, "method %s not supported", method)
	}
	res, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

// OnAccountsChanged implements provider.Provider.
func (f *Fake) OnAccountsChanged(fn func([]string)) provider.Subscription {
	return f.Accounts.Subscribe(fn)
}

// OnChainChanged implements provider.Provider.
func (f *Fake) OnChainChanged(fn func(string)) provider.Subscription {
	return f.Chains.Subscribe(fn)
}
