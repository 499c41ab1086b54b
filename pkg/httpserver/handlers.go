package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/predictpesa/settlement/internal/engine"
	"github.com/predictpesa/settlement/pkg/cache"
	"github.com/predictpesa/settlement/pkg/types"
	"go.uber.org/zap"
)

type handler struct {
	engine      *engine.Engine
	snapshots   cache.Cache
	snapshotTTL time.Duration
	logger      *zap.Logger
}

func newHandler(eng *engine.Engine, snapshots cache.Cache, snapshotTTL time.Duration, logger *zap.Logger) *handler {
	return &handler{
		engine:      eng,
		snapshots:   snapshots,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// state 409, idempotency 409, insolvency 422.
func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var engErr *types.Error
	if errors.As(err, &engErr) {
		switch engErr.Kind {
		case types.KindValidation:
			status = http.StatusBadRequest
		case types.KindState, types.KindIdempotency:
			status = http.StatusConflict
		case types.KindInsolvency:
			status = http.StatusUnprocessableEntity
		}
		h.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: engErr.Kind.String(), Code: engErr.Code})
		return
	}

	h.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: "validation"})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *handler) decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func marketID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *handler) createMarket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expiry   time.Time `json:"expiry"`
		MinStake int64     `json:"min_stake"`
		MaxStake int64     `json:"max_stake"`
		Category string    `json:"category"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.engine.CreateMarket(r.Context(), req.Expiry, req.MinStake, req.MaxStake, req.Category)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, view)
}

func (h *handler) listMarkets(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Markets())
}

func (h *handler) getMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.snapshots != nil {
		if cached, ok := h.snapshots.Get(id.String()); ok {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	view, err := h.engine.Market(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.snapshots != nil {
		h.snapshots.Set(id.String(), view, h.snapshotTTL)
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) stake(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Holder   string `json:"holder"`
		Position string `json:"position"`
		Amount   int64  `json:"amount"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	pos, err := types.ParsePosition(req.Position)
	if err != nil {
		h.writeError(w, err)
		return
	}

	err = h.engine.Stake(r.Context(), id, common.HexToAddress(req.Holder), pos, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(id)
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "staked"})
}

func (h *handler) refund(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Holder string `json:"holder"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	amount, err := h.engine.Refund(r.Context(), id, common.HexToAddress(req.Holder))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(id)
	h.writeJSON(w, http.StatusOK, map[string]int64{"refunded": amount})
}

func (h *handler) submitReport(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Source        string `json:"source"`
		Outcome       string `json:"outcome"`
		ConfidenceBps int64  `json:"confidence_bps"`
		EvidenceRef   string `json:"evidence_ref"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	outcome, err := types.ParsePosition(req.Outcome)
	if err != nil {
		h.writeError(w, err)
		return
	}

	err = h.engine.SubmitReport(r.Context(), id, common.HexToAddress(req.Source), outcome, req.ConfidenceBps, req.EvidenceRef)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(id)
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "reported"})
}

func (h *handler) getResolution(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.engine.Resolution(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) listDisputes(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.engine.Disputes(id))
}

func (h *handler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Challenger  string `json:"challenger"`
		Proposed    string `json:"proposed"`
		EvidenceRef string `json:"evidence_ref"`
		Stake       int64  `json:"stake"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	proposed, err := types.ParsePosition(req.Proposed)
	if err != nil {
		h.writeError(w, err)
		return
	}

	index, err := h.engine.RaiseDispute(r.Context(), id, common.HexToAddress(req.Challenger), proposed, req.EvidenceRef, req.Stake)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int{"index": index})
}

func (h *handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Caller string `json:"caller"`
		Accept bool   `json:"accept"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	err = h.engine.ResolveDispute(r.Context(), common.HexToAddress(req.Caller), id, index, req.Accept)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Holder string `json:"holder"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	payout, err := h.engine.ClaimReward(r.Context(), id, common.HexToAddress(req.Holder))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"payout": payout})
}

func (h *handler) cancelMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Caller string `json:"caller"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	err = h.engine.CancelMarket(r.Context(), common.HexToAddress(req.Caller), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(id)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *handler) getPool(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	view, err := h.engine.Pool(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *handler) addLiquidity(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Provider  string `json:"provider"`
		AmountYes int64  `json:"amount_yes"`
		AmountNo  int64  `json:"amount_no"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	minted, err := h.engine.AddLiquidity(r.Context(), id, common.HexToAddress(req.Provider), req.AmountYes, req.AmountNo)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]int64{"minted": minted})
}

func (h *handler) removeLiquidity(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Provider string `json:"provider"`
		Shares   int64  `json:"shares"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	outYes, outNo, err := h.engine.RemoveLiquidity(r.Context(), id, common.HexToAddress(req.Provider), req.Shares)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"amount_yes": outYes, "amount_no": outNo})
}

func (h *handler) swap(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Trader       string `json:"trader"`
		TokenIn      string `json:"token_in"`
		AmountIn     int64  `json:"amount_in"`
		MinAmountOut int64  `json:"min_amount_out"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	tokenIn, err := types.ParsePosition(req.TokenIn)
	if err != nil {
		h.writeError(w, err)
		return
	}

	amountOut, err := h.engine.Swap(r.Context(), id, common.HexToAddress(req.Trader), tokenIn, req.AmountIn, req.MinAmountOut)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int64{"amount_out": amountOut})
}

func (h *handler) listSources(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Sources())
}

func (h *handler) registerSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	src := h.engine.RegisterSource(r.Context(), common.HexToAddress(req.Address))
	h.writeJSON(w, http.StatusCreated, src)
}

func (h *handler) verifySource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	err := h.engine.VerifySource(r.Context(), common.HexToAddress(req.Caller), common.HexToAddress(chi.URLParam(r, "addr")))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *handler) invalidate(id uuid.UUID) {
	if h.snapshots != nil {
		h.snapshots.Delete(id.String())
	}
}
