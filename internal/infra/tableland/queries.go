package tableland

import (
	"fmt"
	"strings"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

func latestBlocksSQL(exclude []domain.ChainID) string {
	var where string
	if len(exclude) > 0 {
		conds := make([]string, len(exclude))
		for i, id := range exclude {
			conds[i] = fmt.Sprintf("chain_id != %d", id)
		}
		where = "\nWHERE\n  " + strings.Join(conds, " AND ")
	}
	return `SELECT
  chain_id,
  max(block_number) AS block_number,
  timestamp
FROM
  system_evm_blocks` + where + `
GROUP BY
  chain_id;`
}

func eventsSQL(r domain.BlockRange) string {
	return fmt.Sprintf(`SELECT
  chain_id,
  block_number,
  tx_hash,
  event_type,
  json_extract(event_json, '$.Caller') AS caller,
  json_extract(event_json, '$.TableId') AS table_id,
  json_extract(event_json, '$.Statement') AS statement
FROM
  system_evm_events
WHERE
  block_number > %d AND
  block_number <= %d AND
  chain_id = %d AND
  (event_type = '%s' OR event_type = '%s')
ORDER BY
  block_number ASC;`,
		r.FromExclusive, r.ToInclusive, r.ChainID,
		domain.EventTypeCreateTable, domain.EventTypeRunSQL)
}
