package chaincfg

import "strings"

// Params is used to group parameters for various networks such as the main
// network and test networks.
type Params struct {
	Name               string
	AddressPrefix      string
	RESTAPIURL         string
	WalletAPIURL       string
	MarketCoinID       string
	DefaultGatewayPort string
	// DAAPerSecond is the target rate of DAA score growth.
	DAAPerSecond uint64
}

// MainNetParams contains parameters on the main network
var MainNetParams = Params{
	Name:               "mainnet",
	AddressPrefix:      "kaspa",
	RESTAPIURL:         "https://api.kaspa.org",
	WalletAPIURL:       "https://kaspagames.org/api/wallets",
	MarketCoinID:       "kaspa",
	DefaultGatewayPort: "8720",
	DAAPerSecond:       1,
}

// TestNetParams contains parameters on the test network
var TestNetParams = Params{
	Name:               "testnet",
	AddressPrefix:      "kaspatest",
	RESTAPIURL:         "https://api-tn10.kaspa.org",
	WalletAPIURL:       "https://kaspagames.org/api/testnet/wallets",
	MarketCoinID:       "kaspa",
	DefaultGatewayPort: "18720",
	DAAPerSecond:       1,
}

var ActiveNetParams = &MainNetParams

// IsValidAddress reports whether addr looks like an address of the network.
// Only the human readable prefix and the charset are checked.
func (p *Params) IsValidAddress(addr string) bool {
	prefix := p.AddressPrefix + ":"
	if !strings.HasPrefix(addr, prefix) {
		return false
	}
	payload := addr[len(prefix):]
	if len(payload) < 61 || len(payload) > 63 {
		return false
	}
	for _, c := range payload {
		if !strings.ContainsRune(bech32Charset, c) {
			return false
		}
	}
	return true
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var BotBackendVersion = "unknown"
var IndexerBackendVersion = "unknown"
