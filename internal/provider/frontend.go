package provider

// Frontend is where the Local wallet asks its user for consent. Returning
// false makes the wallet answer with a 4001 user-rejected error.
type Frontend interface {
	ConfirmConnect(account string) bool
	ConfirmAddChain(params AddChainParams) bool
	ConfirmTransaction(tx TxRequest, chain ChainInfo) bool
}

// Approve is a Frontend that answers every prompt with a fixed decision.
type Approve bool

// AutoApprove accepts every prompt; used with --yes.
const AutoApprove = Approve(true)

func (a Approve) ConfirmConnect(string) bool { return bool(a) }
func (a Approve) ConfirmAddChain(AddChainParams) bool { return bool(a) }
func (a Approve) ConfirmTransaction(TxRequest, ChainInfo) bool { return bool(a) }

// FrontendFuncs adapts plain functions to a Frontend. A nil field approves.
type FrontendFuncs struct {
	Connect     func(account string) bool
	AddChain    func(params AddChainParams) bool
	Transaction func(tx TxRequest, chain ChainInfo) bool
}

func (f FrontendFuncs) ConfirmConnect(account string) bool {
	return f.Connect == nil || f.Connect(account)
}

func (f FrontendFuncs) ConfirmAddChain(params AddChainParams) bool {
	return f.AddChain == nil || f.AddChain(params)
}

func (f FrontendFuncs) ConfirmTransaction(tx TxRequest, chain ChainInfo) bool {
	return f.Transaction == nil || f.Transaction(tx, chain)
}
