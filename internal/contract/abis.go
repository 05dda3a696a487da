// Package contract holds the embedded token and staking ABIs and typed
// helpers that pack calldata and decode return data for them.
package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BuiltinKind is a contract interface whose ABI is embedded in the binary.
// Each ABI registers itself via init() in its own <name>_abi.go file.
type BuiltinKind struct {
	ID          string // machine key, e.g. "erc20", "staking-v2"
	Name        string // human label
	Description string
	JSON        string
	ABI         abi.ABI
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin parses b.JSON and adds b to the registry. Embedded ABIs
// are compile-time constants, so a parse failure panics.
func RegisterBuiltin(b BuiltinKind) {
	parsed, err := abi.JSON(strings.NewReader(b.JSON))
	if err != nil {
		panic(fmt.Sprintf("contract: builtin %q: %v", b.ID, err))
	}
	b.ABI = parsed
	builtinRegistry[b.ID] = b
}

// GetBuiltin returns a builtin by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns every registered builtin sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mustABI(id string) abi.ABI {
	b, ok := builtinRegistry[id]
	if !ok {
		panic("contract: builtin " + id + " not registered")
	}
	return b.ABI
}
