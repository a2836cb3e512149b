package tableland

import (
	"time"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

const (
	TestnetsURL = "https://testnets.tableland.network/api/v1"
	MainnetsURL = "https://tableland.network/api/v1"
)

// Network is one group of chains served by the same indexing endpoint.
type Network struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	// ChainIDs routes range queries for these chains here. An empty list
	// makes the network the fallback for unknown chains.
	ChainIDs []domain.ChainID `yaml:"chain_ids"`
	// ExcludeChainIDs are decommissioned chains left out of cursor queries.
	ExcludeChainIDs []domain.ChainID `yaml:"exclude_chain_ids"`
}

// Config holds indexing API settings.
type Config struct {
	Networks []Network     `yaml:"networks"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultNetworks mirrors the public testnet and mainnet gateways.
func DefaultNetworks() []Network {
	return []Network{
		{
			Name:    "testnets",
			BaseURL: TestnetsURL,
			ChainIDs: []domain.ChainID{
				domain.ChainIDGoerli,
				domain.ChainIDOptimismGoerli,
				domain.ChainIDFilecoinHyperspace,
				domain.ChainIDLocal,
				domain.ChainIDPolygonMumbai,
				domain.ChainIDPolygonAmoy,
				domain.ChainIDBaseSepolia,
				domain.ChainIDFilecoinCalibration,
				domain.ChainIDArbitrumGoerli,
				domain.ChainIDArbitrumSepolia,
				domain.ChainIDSepolia,
				domain.ChainIDOptimismSepolia,
			},
			ExcludeChainIDs: []domain.ChainID{
				domain.ChainIDArbitrumGoerli,
				domain.ChainIDGoerli,
				domain.ChainIDFilecoinHyperspace,
			},
		},
		{
			Name:    "mainnets",
			BaseURL: MainnetsURL,
		},
	}
}
