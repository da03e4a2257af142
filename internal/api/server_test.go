package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/testutil"
	"github.com/roach88/dlog/internal/universe"
)

type testEnv struct {
	node   *node.Node
	store  *store.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "dlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n, err := node.Open(context.Background(), s,
		node.WithIDGenerator(testutil.NewSequentialIDGenerator("tx")),
		node.WithClock(testutil.NewFrozenClock()),
		node.WithLogger(logger),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(New(n, logger))
	t.Cleanup(srv.Close)
	return &testEnv{node: n, store: s, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) mint(t *testing.T, owner string, amount string) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/mints",
		`{"to":{"owner":"`+owner+`","label":"main"},"amount":"`+amount+`"}`)
	require.Equal(t, http.StatusCreated, status, body)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "7")

	status, body := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "7", body["total_supply"])
	assert.Equal(t, float64(1), body["journal_seq"])
}

func TestTransferFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "100")

	status, body := env.do(t, http.MethodPost, "/transfers",
		`{"from":{"owner":"alice","label":"main"},"to":{"owner":"bob","label":"main"},"amount":"30"}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "tx-0002", body["id"])
	assert.Equal(t, "transfer", body["kind"])

	status, body = env.do(t, http.MethodGet, "/balances/bob/main", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "30", body["balance"])

	status, body = env.do(t, http.MethodGet, "/balances/nobody/main", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["balance"])
}

func TestSubmitErrors(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "10")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{
			name:   "zero amount",
			path:   "/transfers",
			body:   `{"from":{"owner":"alice","label":"main"},"to":{"owner":"bob","label":"main"},"amount":"0"}`,
			status: http.StatusBadRequest,
			code:   "INVALID_AMOUNT",
		},
		{
			name:   "insufficient balance",
			path:   "/transfers",
			body:   `{"from":{"owner":"alice","label":"main"},"to":{"owner":"bob","label":"main"},"amount":"11"}`,
			status: http.StatusConflict,
			code:   "INSUFFICIENT_BALANCE",
		},
		{
			name:   "burn too much",
			path:   "/burns",
			body:   `{"from":{"owner":"alice","label":"main"},"amount":"11"}`,
			status: http.StatusConflict,
			code:   "INSUFFICIENT_BALANCE",
		},
		{
			name:   "malformed json",
			path:   "/mints",
			body:   `{"to":`,
			status: http.StatusBadRequest,
			code:   "GENERIC",
		},
		{
			name:   "numeric amount",
			path:   "/mints",
			body:   `{"to":{"owner":"alice","label":"main"},"amount":5}`,
			status: http.StatusBadRequest,
			code:   "GENERIC",
		},
		{
			name:   "oversized body",
			path:   "/mints",
			body:   `{"to":{"owner":"` + strings.Repeat("a", maxSubmitBody) + `","label":"main"},"amount":"5"}`,
			status: http.StatusBadRequest,
			code:   "GENERIC",
		},
		{
			name:   "unknown field",
			path:   "/mints",
			body:   `{"to":{"owner":"alice","label":"main"},"amount":"5","memo":"x"}`,
			status: http.StatusBadRequest,
			code:   "GENERIC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status, body)
			assert.Equal(t, tt.code, body["code"])
		})
	}

	// None of the rejected requests reached the journal.
	assert.Equal(t, int64(1), env.node.JournalSeq())
}

func TestSnapshotLifecycle(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/snapshot", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "GENERIC", body["code"])

	env.mint(t, "alice", "100")

	status, body = env.do(t, http.MethodPost, "/fold", "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(0), body["height"])
	assert.Equal(t, float64(testutil.Epoch.UnixMilli()), body["timestamp_ms"])
	root := body["root"]
	assert.Len(t, root, 64)

	status, body = env.do(t, http.MethodGet, "/snapshot", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, root, body["root"])

	status, body = env.do(t, http.MethodGet, "/snapshots/0", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, root, body["root"])

	status, body = env.do(t, http.MethodGet, "/snapshots/0/verify", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verified"])

	status, _ = env.do(t, http.MethodGet, "/snapshots/5", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, "/snapshots/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "GENERIC", body["code"])
}

func TestListSnapshots(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		_, err := env.node.Fold(context.Background())
		require.NoError(t, err)
	}

	resp, err := http.Get(env.server.URL + "/snapshots?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []store.SnapshotRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 2)
	assert.Equal(t, uint64(2), records[0].Height)

	status, _ := env.do(t, http.MethodGet, "/snapshots?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVerify_TamperedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "100")
	_, err := env.node.Fold(context.Background())
	require.NoError(t, err)

	_, err = env.store.DB().Exec(`UPDATE snapshot_balances SET amount = '101'`)
	require.NoError(t, err)

	status, body := env.do(t, http.MethodGet, "/snapshots/0/verify", "")
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ROOT_MISMATCH", body["code"])
}

func TestProofEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "100")
	env.mint(t, "bob", "5")
	_, err := env.node.Fold(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/snapshots/0/proof/alice/main")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Snapshot store.SnapshotRecord  `json:"snapshot"`
		Proof    universe.BalanceProof `json:"proof"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NoError(t, universe.VerifyBalance(got.Snapshot.Snapshot, got.Proof))
	assert.Equal(t, "100", got.Proof.Entry.Balance.String())

	status, body := env.do(t, http.MethodGet, "/snapshots/0/proof/carol/main", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UNKNOWN_LABEL", body["code"])
}

func TestBalanceAtEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "100")
	_, err := env.node.Fold(context.Background())
	require.NoError(t, err)
	env.mint(t, "alice", "5")

	status, body := env.do(t, http.MethodGet, "/snapshots/0/balances/alice/main", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "alice", body["owner"])
	assert.Equal(t, "100", body["balance"])
	assert.Equal(t, float64(0), body["height"])

	status, body = env.do(t, http.MethodGet, "/snapshots/0/balances/carol/main", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", body["balance"])

	status, _ = env.do(t, http.MethodGet, "/snapshots/3/balances/alice/main", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/snapshots/x/balances/alice/main", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBalanceHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "1")
	_, err := env.node.Fold(context.Background())
	require.NoError(t, err)
	env.mint(t, "alice", "1")
	_, err = env.node.Fold(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/balances/alice/main/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var points []store.BalancePoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&points))
	require.Len(t, points, 2)
	assert.Equal(t, "2", points[1].Balance.String())
}

func dialStream(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/snapshots/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readRecord(t *testing.T, conn *websocket.Conn) store.SnapshotRecord {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var rec store.SnapshotRecord
	require.NoError(t, conn.ReadJSON(&rec))
	return rec
}

func TestStream_DeliversFolds(t *testing.T) {
	env := newTestEnv(t)
	conn := dialStream(t, env)

	// Subscription happens server-side after the upgrade; keep folding
	// until one arrives.
	got := make(chan store.SnapshotRecord, 1)
	go func() {
		var rec store.SnapshotRecord
		if err := conn.ReadJSON(&rec); err == nil {
			got <- rec
		}
	}()

	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case rec := <-got:
			assert.NotEqual(t, universe.Snapshot{}.Root, rec.Root)
			return
		case <-ticker.C:
			_, err := env.node.Fold(context.Background())
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("no snapshot received over websocket")
		}
	}
}

func TestStream_LatestFirstThenIncreasingHeights(t *testing.T) {
	env := newTestEnv(t)
	env.mint(t, "alice", "100")
	_, err := env.node.Fold(context.Background())
	require.NoError(t, err)

	conn := dialStream(t, env)

	first := readRecord(t, conn)
	assert.Equal(t, uint64(0), first.Height)
	assert.Equal(t, int64(1), first.JournalSeq)

	// The server subscribed before sending the latest record, so these
	// folds are delivered exactly once each.
	env.mint(t, "bob", "5")
	for i := 0; i < 2; i++ {
		_, err := env.node.Fold(context.Background())
		require.NoError(t, err)
	}

	second := readRecord(t, conn)
	assert.Equal(t, uint64(1), second.Height)
	assert.Equal(t, int64(2), second.JournalSeq)
	third := readRecord(t, conn)
	assert.Equal(t, uint64(2), third.Height)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{universe.NewInvalidAmountError("x"), http.StatusBadRequest},
		{universe.NewInsufficientBalanceError(nil, universe.Zero, universe.NewBalance(1)), http.StatusConflict},
		{universe.NewUnknownLabelError(universe.NewLabelID("a", "b")), http.StatusNotFound},
		{universe.NewRootMismatchError(0, universe.Snapshot{}.Root, universe.Snapshot{}.Root), http.StatusUnprocessableEntity},
		{universe.NewGenericError("x"), http.StatusInternalServerError},
		{badRequest("nope"), http.StatusBadRequest},
		{node.ErrSnapshotNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
