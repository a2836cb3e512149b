// Package tableland queries the indexing service for per-chain cursors and
// the SQL events inside a block range.
package tableland

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
	"github.com/vietddude/sqllogs/internal/infra/httpx"
	"github.com/vietddude/sqllogs/internal/infra/retry"
)

// StatementFilter drops statements before any lookup is made for them.
type StatementFilter interface {
	IsHealthbot(stmt string) bool
}

// Client talks to one or more indexing gateways.
type Client struct {
	networks   []Network
	httpClient *http.Client
	retry      retry.Config
	filter     StatementFilter
	log        *slog.Logger

	mu      sync.RWMutex
	learned map[domain.ChainID]string // chain -> base url seen in cursor queries
}

// NewClient creates an indexing client. filter may be nil.
func NewClient(cfg Config, filter StatementFilter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	networks := cfg.Networks
	if len(networks) == 0 {
		networks = DefaultNetworks()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rc := retry.IndexerConfig
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.HTTPRetries.WithLabelValues("indexer").Inc()
		logger.Warn("Indexer rate limited, backing off", "attempt", attempt, "delay", delay, "error", err)
	}

	return &Client{
		networks:   networks,
		httpClient: httpx.NewClient(timeout),
		retry:      rc,
		filter:     filter,
		log:        logger,
		learned:    make(map[domain.ChainID]string),
	}
}

// SetRetryConfig overrides the backoff policy, keeping the retry hook.
func (c *Client) SetRetryConfig(rc retry.Config) {
	rc.OnRetry = c.retry.OnRetry
	c.retry = rc
}

// FetchLatestCursors returns max block and its timestamp for every chain of
// every network. Chain ids are disjoint across networks.
func (c *Client) FetchLatestCursors(ctx context.Context) (domain.CursorSet, error) {
	var set domain.CursorSet
	for _, n := range c.networks {
		var rows []latestBlockRow
		if err := c.query(ctx, n.BaseURL, latestBlocksSQL(n.ExcludeChainIDs), &rows); err != nil {
			return nil, fmt.Errorf("latest blocks for %s: %w", n.Name, err)
		}

		c.mu.Lock()
		for _, row := range rows {
			cur := domain.Cursor{
				ChainID:     domain.ChainID(row.ChainID),
				BlockNumber: uint64(row.BlockNumber),
				Timestamp:   int64(row.Timestamp),
			}
			c.learned[cur.ChainID] = n.BaseURL
			set = append(set, cur)
		}
		c.mu.Unlock()

		c.log.Debug("Fetched latest blocks", "network", n.Name, "chains", len(rows))
	}
	return set, nil
}

// FetchEvents returns the create/run-SQL events in r in ascending block
// order, with table names and receipt errors resolved. Healthbot rows are
// dropped first.
func (c *Client) FetchEvents(ctx context.Context, r domain.BlockRange) ([]domain.RawEvent, error) {
	if r.Empty() {
		return nil, nil
	}
	baseURL := c.BaseURL(r.ChainID)

	var rows []eventRow
	if err := c.query(ctx, baseURL, eventsSQL(r), &rows); err != nil {
		return nil, fmt.Errorf("events for chain %d: %w", r.ChainID, err)
	}

	events := make([]domain.RawEvent, 0, len(rows))
	for _, row := range rows {
		if c.filter != nil && c.filter.IsHealthbot(row.Statement) {
			continue
		}

		ev := domain.RawEvent{
			ChainID:     domain.ChainID(row.ChainID),
			BlockNumber: uint64(row.BlockNumber),
			TxHash:      row.TxHash,
			EventType:   domain.EventType(row.EventType),
			Caller:      row.Caller,
			TableID:     fmt.Sprintf("%d", uint64(row.TableID)),
			Statement:   row.Statement,
			BaseURL:     baseURL,
		}

		name, err := c.TableName(ctx, baseURL, ev.ChainID, ev.TableID)
		if err != nil {
			return nil, err
		}
		ev.TableName = name

		receiptErr, err := c.ReceiptError(ctx, baseURL, ev.ChainID, ev.TxHash)
		if err != nil {
			return nil, err
		}
		ev.Error = receiptErr

		events = append(events, ev)
	}
	return events, nil
}

// TableName resolves a table id. A 404 means the table was never created
// and yields nil without error.
func (c *Client) TableName(ctx context.Context, baseURL string, chainID domain.ChainID, tableID string) (*string, error) {
	var resp tableResponse
	err := c.get(ctx, fmt.Sprintf("%s/tables/%d/%s", baseURL, chainID, url.PathEscape(tableID)), &resp)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("table %d/%s: %w", chainID, tableID, err)
	}
	return &resp.Name, nil
}

// ReceiptError returns the error recorded for a reverted statement.
func (c *Client) ReceiptError(ctx context.Context, baseURL string, chainID domain.ChainID, txHash string) (*string, error) {
	var resp receiptResponse
	if err := c.get(ctx, fmt.Sprintf("%s/receipt/%d/%s", baseURL, chainID, url.PathEscape(txHash)), &resp); err != nil {
		return nil, fmt.Errorf("receipt %d/%s: %w", chainID, txHash, err)
	}
	if resp.Error == nil || *resp.Error == "" {
		return nil, nil
	}
	return resp.Error, nil
}

// BaseURL picks the gateway for a chain: the one that reported it, then the
// network listing it, then the first network without a chain list.
func (c *Client) BaseURL(chainID domain.ChainID) string {
	c.mu.RLock()
	learned, ok := c.learned[chainID]
	c.mu.RUnlock()
	if ok {
		return learned
	}

	var fallback string
	for _, n := range c.networks {
		if len(n.ChainIDs) == 0 && fallback == "" {
			fallback = n.BaseURL
		}
		for _, id := range n.ChainIDs {
			if id == chainID {
				return n.BaseURL
			}
		}
	}
	if fallback == "" && len(c.networks) > 0 {
		fallback = c.networks[len(c.networks)-1].BaseURL
	}
	return fallback
}

func (c *Client) query(ctx context.Context, baseURL, statement string, out any) error {
	q := url.Values{}
	q.Set("statement", statement)
	return c.get(ctx, strings.TrimRight(baseURL, "/")+"/query?"+q.Encode(), out)
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	return retry.Do(ctx, c.retry, retry.RateLimited, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return httpx.DoJSON(c.httpClient, req, out)
	})
}
