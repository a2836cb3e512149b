package domain

import (
	"fmt"
	"strconv"
)

// ChainID is an EVM chain id.
type ChainID int64

func (id ChainID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseChainID parses a decimal chain id.
func ParseChainID(s string) (ChainID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return ChainID(v), nil
}

const (
	// Mainnets
	ChainIDEthereum     ChainID = 1
	ChainIDOptimism     ChainID = 10
	ChainIDPolygon      ChainID = 137
	ChainIDFilecoin     ChainID = 314
	ChainIDBase         ChainID = 8453
	ChainIDArbitrum     ChainID = 42161
	ChainIDArbitrumNova ChainID = 42170

	// Testnets
	ChainIDGoerli              ChainID = 5
	ChainIDOptimismGoerli      ChainID = 420
	ChainIDFilecoinHyperspace  ChainID = 3141
	ChainIDLocal               ChainID = 31337
	ChainIDPolygonMumbai       ChainID = 80001
	ChainIDPolygonAmoy         ChainID = 80002
	ChainIDBaseSepolia         ChainID = 84532
	ChainIDFilecoinCalibration ChainID = 314159
	ChainIDArbitrumGoerli      ChainID = 421613
	ChainIDArbitrumSepolia     ChainID = 421614
	ChainIDSepolia             ChainID = 11155111
	ChainIDOptimismSepolia     ChainID = 11155420
)

// ChainNames maps chain ids to the labels shown in notifications.
var ChainNames = map[ChainID]string{
	ChainIDEthereum:            "mainnet",
	ChainIDOptimism:            "optimism",
	ChainIDPolygon:             "matic",
	ChainIDFilecoin:            "filecoin",
	ChainIDBase:                "base",
	ChainIDArbitrum:            "arbitrum",
	ChainIDArbitrumNova:        "arbitrum-nova",
	ChainIDGoerli:              "goerli",
	ChainIDOptimismGoerli:      "optimism-goerli",
	ChainIDFilecoinHyperspace:  "filecoin-hyperspace",
	ChainIDLocal:               "local-tableland",
	ChainIDPolygonMumbai:       "maticmum",
	ChainIDPolygonAmoy:         "polygon-amoy",
	ChainIDBaseSepolia:         "base-sepolia",
	ChainIDFilecoinCalibration: "filecoin-calibration",
	ChainIDArbitrumGoerli:      "arbitrum-goerli",
	ChainIDArbitrumSepolia:     "arbitrum-sepolia",
	ChainIDSepolia:             "sepolia",
	ChainIDOptimismSepolia:     "optimism-sepolia",
}

// ChainName returns the display label for id, falling back to the number.
func ChainName(id ChainID) string {
	if name, ok := ChainNames[id]; ok {
		return name
	}
	return "chain " + id.String()
}
