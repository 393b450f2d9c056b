package models

// ConnectionState is the user-facing connection state of the view.
// It is not persisted across sessions.
type ConnectionState struct {
	// Account is the connected wallet address, empty when disconnected
	Account string
	// Network is the identifier reported by the wallet, empty until known
	Network string
	// Draft is the message typed by the user
	Draft string
}

// NewConnectionState returns the state of a freshly mounted view
func NewConnectionState() ConnectionState {
	return ConnectionState{Draft: DefaultDraft}
}

// Connected reports whether a wallet account is available
func (s ConnectionState) Connected() bool {
	return s.Account != ""
}

// OnNetwork reports whether the wallet is on the required network
func (s ConnectionState) OnNetwork(required string) bool {
	return s.Network != "" && s.Network == required
}
