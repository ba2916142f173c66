package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"solana-wallet-tracker/internal/domain"
	"solana-wallet-tracker/internal/idhash"
	"solana-wallet-tracker/internal/solana"
	"solana-wallet-tracker/internal/storage"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// walletView is the wallet representation returned to clients.
type walletView struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Name        string `json:"name,omitempty"`
	IsActive    bool   `json:"isActive"`
	RecordCount int    `json:"recordCount"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// recordView is the swap record representation returned to clients.
type recordView struct {
	Signature     string  `json:"signature"`
	WalletID      string  `json:"walletId"`
	WalletAddress string  `json:"walletAddress"`
	Direction     string  `json:"direction"`
	Venue         string  `json:"venue"`
	TokenIn       string  `json:"tokenIn"`
	TokenOut      string  `json:"tokenOut"`
	TokenMint     string  `json:"tokenMint,omitempty"`
	AmountIn      string  `json:"amountIn"`
	AmountOut     string  `json:"amountOut"`
	SolPriceUSD   float64 `json:"solPriceUsd"`
	Description   string  `json:"description"`
	Slot          int64   `json:"slot"`
	ObservedAt    int64   `json:"observedAt"`
}

// recordPage wraps a record listing with its pagination cursor.
type recordPage struct {
	Records []recordView `json:"records"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
}

// tokenView is the per-mint aggregate returned by /tokens.
type tokenView struct {
	TokenMint  string `json:"tokenMint"`
	TokenOut   string `json:"tokenOut"`
	Trades     int    `json:"trades"`
	Buys       int    `json:"buys"`
	Sells      int    `json:"sells"`
	LastSeenAt int64  `json:"lastSeenAt"`
}

func newWalletView(w *domain.TrackedWallet, recordCount int) walletView {
	return walletView{
		ID:          w.ID,
		Address:     w.Address,
		Name:        w.Name,
		IsActive:    w.IsActive,
		RecordCount: recordCount,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func newRecordView(r *domain.SwapRecord) recordView {
	return recordView{
		Signature:     r.Signature,
		WalletID:      r.WalletID,
		WalletAddress: r.WalletAddress,
		Direction:     string(r.Direction),
		Venue:         r.Venue,
		TokenIn:       r.TokenIn,
		TokenOut:      r.TokenOut,
		TokenMint:     r.TokenMint,
		AmountIn:      r.AmountIn,
		AmountOut:     r.AmountOut,
		SolPriceUSD:   r.SolPriceUSD,
		Description:   r.Description,
		Slot:          r.Slot,
		ObservedAt:    r.ObservedAt,
	}
}

func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json;charset=utf8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json;charset=utf8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

// storeErrorStatus maps storage sentinels to HTTP statuses.
func storeErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.wallets.List(r.Context())
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	views := make([]walletView, 0, len(wallets))
	for _, wallet := range wallets {
		count, err := s.records.CountByWallet(r.Context(), wallet.ID)
		if err != nil {
			s.writeError(w, storeErrorStatus(err), err)
			return
		}
		views = append(views, newWalletView(wallet, count))
	}

	s.writeData(w, http.StatusOK, views)
}

// createWalletRequest is the POST /wallets body. IsActive defaults to
// true when omitted.
type createWalletRequest struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	IsActive *bool  `json:"isActive"`
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := solana.ValidateAddress(req.Address); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address: %w", err))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	now := time.Now().UnixMilli()
	wallet := &domain.TrackedWallet{
		ID:        idhash.ComputeWalletID(req.Address),
		Address:   req.Address,
		Name:      req.Name,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.wallets.Create(r.Context(), wallet); err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	s.tracker.AddWallet(r.Context(), wallet)
	s.logger.Printf("[api] wallet %s added (%s)", wallet.ID, wallet.Address)

	s.writeData(w, http.StatusCreated, newWalletView(wallet, 0))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	wallet, err := s.wallets.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	count, err := s.records.CountByWallet(r.Context(), wallet.ID)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	s.writeData(w, http.StatusOK, newWalletView(wallet, count))
}

// updateWalletRequest is the PUT /wallets/{id} body. Omitted fields
// are left unchanged.
type updateWalletRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	wallet, err := s.wallets.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	if req.Name != nil {
		wallet.Name = *req.Name
	}
	if req.IsActive != nil {
		wallet.IsActive = *req.IsActive
	}
	wallet.UpdatedAt = time.Now().UnixMilli()

	if err := s.wallets.Update(r.Context(), wallet); err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	// The live subscription follows the stored active flag.
	if wallet.IsActive {
		s.tracker.AddWallet(r.Context(), wallet)
	} else {
		s.tracker.RemoveWallet(r.Context(), wallet.Address)
	}

	count, err := s.records.CountByWallet(r.Context(), wallet.ID)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	s.writeData(w, http.StatusOK, newWalletView(wallet, count))
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	wallet, err := s.wallets.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	if err := s.wallets.Delete(r.Context(), id); err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	s.tracker.RemoveWallet(r.Context(), wallet.Address)
	s.logger.Printf("[api] wallet %s removed (%s)", wallet.ID, wallet.Address)

	s.writeData(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.RecordFilter{
		WalletID: q.Get("walletId"),
		Limit:    defaultPageLimit,
		Page:     1,
	}

	if v := q.Get("type"); v != "" {
		if !domain.ValidDirection(v) {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown direction %q", v))
			return
		}
		filter.Direction = domain.Direction(v)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		if n > maxPageLimit {
			n = maxPageLimit
		}
		filter.Limit = n
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page %q", v))
			return
		}
		filter.Page = n
	}

	records, total, err := s.records.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, newRecordView(rec))
	}

	s.writeData(w, http.StatusOK, recordPage{
		Records: views,
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.Limit,
	})
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.records.ListTokens(r.Context())
	if err != nil {
		s.writeError(w, storeErrorStatus(err), err)
		return
	}

	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, tokenView{
			TokenMint:  t.TokenMint,
			TokenOut:   t.TokenOut,
			Trades:     t.Trades,
			Buys:       t.Buys,
			Sells:      t.Sells,
			LastSeenAt: t.LastSeenAt,
		})
	}

	s.writeData(w, http.StatusOK, views)
}

func (s *Server) handleTrackerStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, http.StatusOK, s.tracker.Status())
}

// trackerControlRequest is the POST /tracker body.
type trackerControlRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleTrackerControl(w http.ResponseWriter, r *http.Request) {
	var req trackerControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	switch req.Action {
	case "start":
		if err := s.tracker.Start(r.Context()); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	case "stop":
		s.tracker.Stop(r.Context())
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action %q", req.Action))
		return
	}

	s.logger.Printf("[api] tracker %s", req.Action)
	s.writeData(w, http.StatusOK, s.tracker.Status())
}
