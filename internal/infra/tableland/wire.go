package tableland

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// flexUint64 decodes JSON numbers, decimal strings and 0x hex strings.
// json_extract hands back whatever type the event JSON carried.
type flexUint64 uint64

func (f *flexUint64) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		if v, err := strconv.ParseUint(num.String(), 10, 64); err == nil {
			*f = flexUint64(v)
			return nil
		}
		fv, err := num.Float64()
		if err != nil {
			return fmt.Errorf("cannot parse number %s: %w", num, err)
		}
		*f = flexUint64(fv)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("neither number nor string: %s", data)
	}
	if str == "" || str == "0x" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		n, ok := new(big.Int).SetString(str[2:], 16)
		if !ok || !n.IsUint64() {
			return fmt.Errorf("invalid hex value %q", str)
		}
		*f = flexUint64(n.Uint64())
		return nil
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal value %q: %w", str, err)
	}
	*f = flexUint64(v)
	return nil
}

type latestBlockRow struct {
	ChainID     flexUint64 `json:"chain_id"`
	BlockNumber flexUint64 `json:"block_number"`
	Timestamp   flexUint64 `json:"timestamp"`
}

type eventRow struct {
	ChainID     flexUint64 `json:"chain_id"`
	BlockNumber flexUint64 `json:"block_number"`
	TxHash      string     `json:"tx_hash"`
	EventType   string     `json:"event_type"`
	Caller      *string    `json:"caller"`
	TableID     flexUint64 `json:"table_id"`
	Statement   string     `json:"statement"`
}

type tableResponse struct {
	Name string `json:"name"`
}

type receiptResponse struct {
	Error *string `json:"error"`
}
