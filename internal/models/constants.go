// Package models contains data types and constants for the wave portal.
package models

// Contract defaults
const (
	// DefaultContractAddress is the deployed WavePortal contract
	DefaultContractAddress = "0x3e80F076a2374fD26b240cf65F73Ed3E5329d6ED"

	// DefaultGasLimit is the gas limit attached to every wave
	DefaultGasLimit uint64 = 300000

	// DefaultDraft is the initial content of the message box
	DefaultDraft = "Send me a message!"
)

// Contract method and event names
const (
	MethodGetTotalWaves = "getTotalWaves"
	MethodWave          = "wave"
	MethodGetAllWaves   = "getAllWaves"

	EventNewWave = "NewWave"
)

// Network identifiers as reported by net_version
const (
	NetworkMainnet = "1"
	NetworkRinkeby = "4"
	NetworkSepolia = "11155111"

	// DefaultRequiredNetwork is the network the deployed contract lives on
	DefaultRequiredNetwork = NetworkRinkeby
)

// NetworkName returns a display name for a network identifier
func NetworkName(id string) string {
	switch id {
	case NetworkMainnet:
		return "Ethereum Mainnet"
	case NetworkRinkeby:
		return "Rinkeby"
	case NetworkSepolia:
		return "Sepolia"
	case "":
		return "unknown network"
	default:
		return "network " + id
	}
}
