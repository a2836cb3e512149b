// Package vault is a narrow client for the signed, append-only snapshot store
// the cursor database is backed up to.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/core/signing"
	"github.com/vietddude/sqllogs/internal/indexing/metrics"
	"github.com/vietddude/sqllogs/internal/infra/httpx"
	"github.com/vietddude/sqllogs/internal/infra/retry"
)

// FileSigner signs a file on disk.
type FileSigner interface {
	SignFile(path string) ([]byte, error)
}

// Event describes one snapshot stored in a vault.
type Event struct {
	CID         string `json:"cid"`
	Timestamp   int64  `json:"timestamp"`
	IsArchived  bool   `json:"is_archived"`
	CacheExpiry string `json:"cache_expiry"`
}

// EventQuery filters ListEvents. Nil fields are left out.
type EventQuery struct {
	Latest *int64
	Limit  *int64
	Before *int64
	After  *int64
	At     *int64
}

func (q EventQuery) values() url.Values {
	v := url.Values{}
	set := func(key string, p *int64) {
		if p != nil {
			v.Set(key, strconv.FormatInt(*p, 10))
		}
	}
	set("latest", q.Latest)
	set("limit", q.Limit)
	set("before", q.Before)
	set("after", q.After)
	set("at", q.At)
	return v
}

// Latest returns a query for the n most recent events.
func Latest(n int64) EventQuery {
	return EventQuery{Latest: &n}
}

// Client talks to the vault HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	now        func() time.Time
	log        *slog.Logger
}

// NewClient creates a vault client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	rc := retry.VaultConfig
	rc.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.HTTPRetries.WithLabelValues("vault").Inc()
		logger.Warn("Vault request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpx.NewClient(timeout),
		retry:      rc,
		now:        time.Now,
		log:        logger,
	}
}

// SetRetryConfig overrides the backoff policy, keeping the retry hook.
func (c *Client) SetRetryConfig(rc retry.Config) {
	rc.OnRetry = c.retry.OnRetry
	c.retry = rc
}

// CreateVault creates name owned by account. cacheTTL is in minutes.
func (c *Client) CreateVault(ctx context.Context, name, account string, cacheTTL *int) error {
	form := url.Values{}
	form.Set("account", account)
	if cacheTTL != nil {
		form.Set("cache", strconv.Itoa(*cacheTTL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/vaults/"+url.PathEscape(name), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		Created bool `json:"created"`
	}
	if err := httpx.DoJSON(c.httpClient, req, &resp); err != nil {
		return fmt.Errorf("failed to create vault %s: %w", name, err)
	}
	if !resp.Created {
		return fmt.Errorf("vault %s: %w", name, domain.ErrCreation)
	}

	c.log.Info("Vault created", "vault", name, "account", account)
	return nil
}

// ListVaults returns the vault names owned by account. Connection drops on
// the server side are retried.
func (c *Client) ListVaults(ctx context.Context, account string) ([]string, error) {
	q := url.Values{}
	q.Set("account", account)
	target := c.baseURL + "/vaults?" + q.Encode()

	var vaults []string
	err := retry.Do(ctx, c.retry, retry.ConnectionClosed, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		vaults = nil
		return httpx.DoJSON(c.httpClient, req, &vaults)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	return vaults, nil
}

// VaultExists reports whether account owns name.
func (c *Client) VaultExists(ctx context.Context, name, account string) (bool, error) {
	vaults, err := c.ListVaults(ctx, account)
	if err != nil {
		return false, err
	}
	return slices.Contains(vaults, name), nil
}

// WriteEvent uploads payload as a new vault event. Writes are not retried.
func (c *Client) WriteEvent(ctx context.Context, vault string, payload io.Reader, signature, filename string) error {
	return c.writeEvent(ctx, vault, payload, 0, signature, filename)
}

func (c *Client) writeEvent(ctx context.Context, vault string, payload io.Reader, size int64, signature, filename string) error {
	q := url.Values{}
	q.Set("timestamp", strconv.FormatInt(c.now().Unix(), 10))
	q.Set("signature", signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/vaults/"+url.PathEscape(vault)+"/events?"+q.Encode(), payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	req.Header.Set("filename", filename)

	var resp []json.RawMessage
	if err := httpx.DoJSON(c.httpClient, req, &resp); err != nil {
		metrics.VaultWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to write event to %s: %w", vault, err)
	}
	if len(resp) != 0 {
		metrics.VaultWrites.WithLabelValues("rejected").Inc()
		return fmt.Errorf("vault %s: %w", vault, domain.ErrWrite)
	}

	metrics.VaultWrites.WithLabelValues("ok").Inc()
	return nil
}

// WriteFile signs the file at path and uploads it under its base name.
func (c *Client) WriteFile(ctx context.Context, vault, path string, signer FileSigner) error {
	sig, err := signer.SignFile(path)
	if err != nil {
		return fmt.Errorf("failed to sign %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := c.writeEvent(ctx, vault, f, stat.Size(), signing.EncodeSignature(sig), filepath.Base(path)); err != nil {
		return err
	}

	c.log.Debug("State written to vault", "vault", vault, "file", path, "bytes", stat.Size())
	return nil
}

// ListEvents returns the events of vault matching q, newest first.
func (c *Client) ListEvents(ctx context.Context, vault string, q EventQuery) ([]Event, error) {
	target := c.baseURL + "/vaults/" + url.PathEscape(vault) + "/events"
	if v := q.values(); len(v) > 0 {
		target += "?" + v.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var events []Event
	if err := httpx.DoJSON(c.httpClient, req, &events); err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", vault, err)
	}
	return events, nil
}

// FetchEvent downloads the blob for cid to dst. The data lands in a
// temporary file next to dst and is renamed into place once complete.
// A 404 means the cache expired and returns domain.ErrNotFound.
func (c *Client) FetchEvent(ctx context.Context, cid, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/"+url.PathEscape(cid), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpx.Do(c.httpClient, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("event %s not found or cache expired: %w", cid, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to fetch event %s: %w", cid, err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to download event %s: %w", cid, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	c.log.Debug("Event downloaded", "cid", cid, "path", dst, "bytes", n)
	return nil
}
