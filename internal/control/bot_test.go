package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/sqllogs/internal/core/config"
	"github.com/vietddude/sqllogs/internal/core/domain"
	redisclient "github.com/vietddude/sqllogs/internal/infra/redis"
	"github.com/vietddude/sqllogs/internal/infra/tableland"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

const testKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

// fakeBasin is an in-memory vault service.
type fakeBasin struct {
	t      *testing.T
	mu     sync.Mutex
	vaults []string
	events []vault.Event // newest first
	blobs  map[string][]byte
}

func (b *fakeBasin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/vaults":
		_ = json.NewEncoder(w).Encode(append([]string{}, b.vaults...))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/events"):
		body, _ := io.ReadAll(r.Body)
		b.verify(body, r.URL.Query().Get("signature"))
		cid := fmt.Sprintf("cid-%d", len(b.blobs)+1)
		b.blobs[cid] = body
		b.events = append([]vault.Event{{CID: cid}}, b.events...)
		_, _ = w.Write([]byte(`[]`))
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/vaults/"):
		b.vaults = append(b.vaults, strings.TrimPrefix(r.URL.Path, "/vaults/"))
		_, _ = w.Write([]byte(`{"created":true}`))
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/events"):
		events := b.events
		if r.URL.Query().Get("latest") == "1" && len(events) > 1 {
			events = events[:1]
		}
		_ = json.NewEncoder(w).Encode(append([]vault.Event{}, events...))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/events/"):
		blob, ok := b.blobs[strings.TrimPrefix(r.URL.Path, "/events/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(blob)
	default:
		b.t.Errorf("unexpected vault call %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (b *fakeBasin) verify(body []byte, sigHex string) {
	sig, err := hexutil.Decode("0x" + sigHex)
	if err != nil {
		b.t.Errorf("bad signature encoding: %v", err)
		return
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(body), sig)
	if err != nil {
		b.t.Errorf("signature does not recover: %v", err)
		return
	}
	if got := strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()); got != "0x70997970c51812dc3a010c7d01b50e0d17dc79c8" {
		b.t.Errorf("signed by %s", got)
	}
}

// fakeGateway serves one chain whose head is set per run.
type fakeGateway struct {
	mu   sync.Mutex
	head uint64
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	head := g.head
	g.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/query"):
		stmt := r.URL.Query().Get("statement")
		if strings.Contains(stmt, "system_evm_blocks") {
			fmt.Fprintf(w, `[{"chain_id":1,"block_number":%d,"timestamp":%d}]`, head, 1700000000+head)
			return
		}
		_, _ = w.Write([]byte(`[{"chain_id":1,"block_number":103,"tx_hash":"0xaaa","event_type":"ContractRunSQL","caller":"0xc","table_id":"2","statement":"insert into pets_1_2 values (1)"}]`))
	case strings.Contains(r.URL.Path, "/tables/"):
		_, _ = w.Write([]byte(`{"name":"pets_1_2"}`))
	case strings.Contains(r.URL.Path, "/receipt/"):
		_, _ = w.Write([]byte(`{"error":null}`))
	default:
		http.NotFound(w, r)
	}
}

func TestBot_RunTwice(t *testing.T) {
	basin := &fakeBasin{t: t, blobs: make(map[string][]byte)}
	basinServer := httptest.NewServer(basin)
	defer basinServer.Close()

	gateway := &fakeGateway{head: 100}
	gatewayServer := httptest.NewServer(gateway)
	defer gatewayServer.Close()

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
signer:
  private_key: %s
state:
  path: %s
vault:
  name: bot.state
  base_url: %s
tableland:
  networks:
    - name: local
      base_url: %s/api/v1
`, testKey, filepath.Join(t.TempDir(), "data", "state.db"), basinServer.URL, gatewayServer.URL)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Tableland.Networks) != 1 {
		t.Fatalf("unexpected networks %+v", cfg.Tableland.Networks)
	}

	bot, err := NewBot(cfg, nil)
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}
	defer bot.Close()

	first, err := bot.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if !first.Plan.FirstRun() || len(first.Plan.Delta) != 1 {
		t.Errorf("unexpected first plan %+v", first.Plan)
	}
	if len(basin.vaults) != 1 || len(basin.events) != 1 {
		t.Fatalf("expected vault created and one snapshot, got %v %v", basin.vaults, basin.events)
	}

	gateway.mu.Lock()
	gateway.head = 105
	gateway.mu.Unlock()

	second, err := bot.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	prev, ok := second.Plan.Previous.Find(1)
	if !ok || prev.BlockNumber != 100 {
		t.Errorf("state was not restored from the snapshot: %v", second.Plan.Previous)
	}
	if second.Fetched != 1 || len(second.Partition.External) != 1 {
		t.Errorf("expected one external event, got %+v", second.Partition)
	}
	if second.Report.Skipped[domain.DestinationExternal] != 1 {
		t.Errorf("unconfigured webhook must skip, got %+v", second.Report)
	}
	if len(basin.events) != 2 {
		t.Errorf("expected a second snapshot, got %d", len(basin.events))
	}
}

func TestNewBot_InvalidKey(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Signer.PrivateKey = "zz"
	cfg.Tableland = tableland.Config{Networks: tableland.DefaultNetworks()}
	if _, err := NewBot(cfg, nil); err == nil {
		t.Fatal("expected signer error")
	}
}

func TestBot_ResetCursor(t *testing.T) {
	basin := &fakeBasin{t: t, blobs: make(map[string][]byte)}
	basinServer := httptest.NewServer(basin)
	defer basinServer.Close()

	cfg := &config.AppConfig{}
	cfg.Signer.PrivateKey = testKey
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Vault = vault.Config{Name: "bot.state", BaseURL: basinServer.URL, CacheTTLMinutes: 30}
	cfg.Tableland = tableland.Config{Networks: tableland.DefaultNetworks()}

	bot, err := NewBot(cfg, nil)
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}

	if err := bot.ResetCursor(context.Background(), domain.Cursor{ChainID: 1, BlockNumber: 42, Timestamp: 7}); err != nil {
		t.Fatalf("ResetCursor failed: %v", err)
	}
	if len(basin.events) != 1 {
		t.Fatalf("expected the reset to be mirrored, got %d snapshots", len(basin.events))
	}
}

func TestBot_ResetCursorRefusesUnrestoredSnapshot(t *testing.T) {
	basin := &fakeBasin{
		t:      t,
		vaults: []string{"bot.state"},
		events: []vault.Event{{CID: "cid-gone"}},
		blobs:  make(map[string][]byte),
	}
	basinServer := httptest.NewServer(basin)
	defer basinServer.Close()

	cfg := &config.AppConfig{}
	cfg.Signer.PrivateKey = testKey
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Vault = vault.Config{Name: "bot.state", BaseURL: basinServer.URL, CacheTTLMinutes: 30}
	cfg.Tableland = tableland.Config{Networks: tableland.DefaultNetworks()}

	bot, err := NewBot(cfg, nil)
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}

	err = bot.ResetCursor(context.Background(), domain.Cursor{ChainID: 1, BlockNumber: 42, Timestamp: 7})
	if !errors.Is(err, ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
	if len(basin.events) != 1 || basin.events[0].CID != "cid-gone" {
		t.Errorf("vault must be left untouched, got %+v", basin.events)
	}
}

func TestBot_RunSkipsWhenLockHeld(t *testing.T) {
	basin := &fakeBasin{t: t, blobs: make(map[string][]byte)}
	basinServer := httptest.NewServer(basin)
	defer basinServer.Close()

	mr := miniredis.RunT(t)
	mr.Set("sqllogs:lock:bot.state", "another-run")

	cfg := &config.AppConfig{}
	cfg.Signer.PrivateKey = testKey
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Vault = vault.Config{Name: "bot.state", BaseURL: basinServer.URL, CacheTTLMinutes: 30}
	cfg.Tableland = tableland.Config{Networks: tableland.DefaultNetworks()}
	cfg.Redis.URL = "redis://" + mr.Addr() + "/0"

	bot, err := NewBot(cfg, nil)
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}
	defer bot.Close()

	if _, err := bot.Run(context.Background()); !errors.Is(err, redisclient.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if len(basin.vaults) != 0 || len(basin.events) != 0 {
		t.Errorf("skipped run must not touch the vault: vaults=%v events=%v", basin.vaults, basin.events)
	}
	if got, _ := mr.Get("sqllogs:lock:bot.state"); got != "another-run" {
		t.Errorf("skipped run must not release a foreign lock, got %q", got)
	}
}
