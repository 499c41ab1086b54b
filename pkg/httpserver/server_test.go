package httpserver

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/engine"
	"github.com/predictpesa/settlement/internal/oracle"
	"github.com/predictpesa/settlement/internal/testutil"
	"github.com/predictpesa/settlement/pkg/healthprobe"
	"github.com/predictpesa/settlement/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	engine  *engine.Engine
	clock   *testutil.Clock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clock := testutil.NewClock()
	eng := engine.New(engine.Config{
		Params: engine.Params{
			MinSources:       3,
			MinConfidenceBps: 8_000,
			DisputePeriod:    24 * time.Hour,
			MinDisputeStake:  100_000,
			ProtocolFeeBps:   100,
			SwapFeeBps:       30,
		},
		Reputation: oracle.Config{
			ReputationStep: 100,
			MinReputation:  0,
			MaxReputation:  10_000,
		},
		Governance: testutil.Governance,
		Transferer: testutil.NewMockTransferer(),
		Now:        clock.Now,
		Logger:     testutil.Logger(),
	})

	health := healthprobe.New("settlement-engine")
	health.SetReady(true)
	srv := New(&Config{
		Port:          "0",
		Logger:        testutil.Logger(),
		HealthChecker: health,
		Engine:        eng,
	})

	return &testServer{handler: srv.Handler(), engine: eng, clock: clock}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createMarket(t *testing.T) uuid.UUID {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/markets", map[string]any{
		"expiry":    s.clock.Now().Add(time.Hour),
		"min_stake": 1_000,
		"max_stake": 1_000_000_000,
		"category":  "sports",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var view types.MarketView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view.ID
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health struct {
		Service string `json:"service"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "settlement-engine", health.Service)
	assert.Equal(t, "healthy", health.Status)

	rec = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/stakes", map[string]any{
		"holder":   testutil.Alice.Hex(),
		"position": "YES",
		"amount":   100_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/stakes", map[string]any{
		"holder":   testutil.Bob.Hex(),
		"position": "NO",
		"amount":   300_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view types.MarketView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(100_000), view.TotalYes)
	assert.Equal(t, int64(300_000), view.TotalNo)
	assert.Equal(t, int64(2_500), view.YesProbabilityBps)

	// Expire, register sources, report to quorum.
	s.clock.Advance(2 * time.Hour)
	for i := 1; i <= 3; i++ {
		addr := testutil.SourceAddr(i)
		rec = s.do(t, http.MethodPost, "/api/sources", map[string]any{"address": addr.Hex()})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/sources/"+addr.Hex()+"/verify", map[string]any{
			"caller": testutil.Governance.Hex(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/reports", map[string]any{
			"source":         addr.Hex(),
			"outcome":        "YES",
			"confidence_bps": 9_000,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String()+"/resolution", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Claims unlock once the dispute window lapses.
	s.clock.Advance(24*time.Hour + time.Second)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/claims", map[string]any{
		"holder": testutil.Alice.Hex(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payout map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payout))
	assert.Equal(t, int64(396_000), payout["payout"])
}

func TestDisputeHistoryOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/stakes", map[string]any{
		"holder":   testutil.Alice.Hex(),
		"position": "YES",
		"amount":   100_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	s.clock.Advance(2 * time.Hour)
	for i := 1; i <= 3; i++ {
		addr := testutil.SourceAddr(i)
		rec = s.do(t, http.MethodPost, "/api/sources", map[string]any{"address": addr.Hex()})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/sources/"+addr.Hex()+"/verify", map[string]any{
			"caller": testutil.Governance.Hex(),
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/reports", map[string]any{
			"source":         addr.Hex(),
			"outcome":        "YES",
			"confidence_bps": 9_000,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String()+"/disputes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var disputes []oracle.Dispute
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disputes))
	assert.Empty(t, disputes)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/disputes", map[string]any{
		"challenger":   testutil.Dave.Hex(),
		"proposed":     "NO",
		"evidence_ref": "evidence://recount",
		"stake":        100_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String()+"/disputes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disputes))
	require.Len(t, disputes, 1)
	assert.Equal(t, testutil.Dave, disputes[0].Challenger)
	assert.Equal(t, int64(100_000), disputes[0].Stake)
	assert.False(t, disputes[0].Resolved)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/disputes/0/resolve", map[string]any{
		"caller": testutil.Governance.Hex(),
		"accept": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Ruled disputes stay queryable with their outcome.
	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String()+"/disputes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &disputes))
	require.Len(t, disputes, 1)
	assert.True(t, disputes[0].Resolved)
	assert.False(t, disputes[0].Accepted)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/stakes", map[string]any{
		"holder":   testutil.Alice.Hex(),
		"position": "YES",
		"amount":   100_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantKind   string
	}{
		{
			name:   "validation error is 400",
			method: http.MethodPost,
			path:   "/api/markets/" + id.String() + "/stakes",
			body: map[string]any{
				"holder":   testutil.Alice.Hex(),
				"position": "YES",
				"amount":   0,
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:   "state error is 409",
			method: http.MethodPost,
			path:   "/api/markets/" + id.String() + "/claims",
			body: map[string]any{
				"holder": testutil.Alice.Hex(),
			},
			wantStatus: http.StatusConflict,
			wantKind:   "state",
		},
		{
			name:   "bad position is 400",
			method: http.MethodPost,
			path:   "/api/markets/" + id.String() + "/stakes",
			body: map[string]any{
				"holder":   testutil.Alice.Hex(),
				"position": "MAYBE",
				"amount":   5_000,
			},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "unknown market is 400",
			method:     http.MethodGet,
			path:       "/api/markets/" + uuid.NewString(),
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp struct {
				Kind string `json:"kind"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
		})
	}
}

func TestInsolvencyMapsTo422(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	// A swap against an empty pool breaks value conservation.
	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/pool/swaps", map[string]any{
		"trader":    testutil.Bob.Hex(),
		"token_in":  "YES",
		"amount_in": 100,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Kind string `json:"kind"`
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insolvency", resp.Kind)
	assert.Equal(t, types.CodeInsufficientLiquidity, resp.Code)
}

func TestIdempotencyMapsTo409(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/cancel", map[string]any{
		"caller": testutil.Governance.Hex(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/stakes", map[string]any{
		"holder":   testutil.Alice.Hex(),
		"position": "YES",
		"amount":   5_000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAMMEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := s.createMarket(t)

	rec := s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/pool/liquidity", map[string]any{
		"provider":   testutil.Alice.Hex(),
		"amount_yes": 1_000,
		"amount_no":  1_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/pool/swaps", map[string]any{
		"trader":    testutil.Bob.Hex(),
		"token_in":  "YES",
		"amount_in": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var swap map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swap))
	assert.Equal(t, int64(90), swap["amount_out"])

	rec = s.do(t, http.MethodGet, "/api/markets/"+id.String()+"/pool", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pool engine.PoolView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pool))
	assert.Equal(t, int64(1_100), pool.ReserveYes)
	assert.Equal(t, int64(910), pool.ReserveNo)

	rec = s.do(t, http.MethodPost, "/api/markets/"+id.String()+"/pool/liquidity/remove", map[string]any{
		"provider": testutil.Alice.Hex(),
		"shares":   500,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGracefulShutdown(t *testing.T) {
	srv := New(&Config{
		Port:          "0",
		Logger:        testutil.Logger(),
		HealthChecker: healthprobe.New("settlement-engine"),
		Engine:        engine.New(engine.Config{Logger: testutil.Logger()}),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}
