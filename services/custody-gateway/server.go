package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"auzchain/crypto"
	nativecommon "auzchain/native/common"
	"auzchain/native/escrow"
	"auzchain/native/hotwallet"
	"auzchain/native/proof"
	"auzchain/native/token"
)

const requestIDHeader = "X-Request-Id"

// Server is the HTTP facade over the custody engines. State-changing calls
// are serialized under one mutex, matching the sequential execution the
// ledger guarantees on-chain.
type Server struct {
	ledger  *token.Engine
	trades  *escrow.Engine
	otc     *hotwallet.Engine
	log     *slog.Logger
	mu      sync.Mutex
	router  http.Handler
}

// NewServer wires the engines behind the HTTP routes.
func NewServer(ledger *token.Engine, trades *escrow.Engine, otc *hotwallet.Engine, log *slog.Logger) *Server {
	if ledger == nil || trades == nil || otc == nil {
		panic("gateway: all engines required")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{ledger: ledger, trades: trades, otc: otc, log: log}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(api chi.Router) {
		api.Post("/trades", s.handleTradeRegister)
		api.Get("/trades/{id}", s.handleTradeGet)
		api.Post("/trades/{id}/validate", s.handleTradeValidate)
		api.Post("/trades/{id}/pay", s.handleTradePay)
		api.Post("/trades/{id}/finish", s.handleTradeFinish)
		api.Post("/trades/{id}/release", s.handleTradeRelease)
		api.Post("/trades/{id}/resolve", s.handleTradeResolve)

		api.Post("/sales", s.handleSaleRequest)
		api.Get("/sales/{id}", s.handleSaleGet)
		api.Post("/sales/{id}/process", s.handleSaleProcess)

		api.Get("/accounts/{address}", s.handleAccountGet)
		api.Get("/supply", s.handleSupply)
	})

	return r
}

// requestID tags every request with a uuid, echoed in the response header
// and attached to the access log line, and records the request counter and
// latency meters. The metric path attribute uses the chi route pattern to
// keep cardinality bounded.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		httpMetrics().record(r.Method, pattern, ww.Status(), elapsed)
		s.log.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", elapsed.Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tradeRequest struct {
	TradeID         string   `json:"trade_id"`
	Sig             string   `json:"sig"`
	Token           string   `json:"token"`
	EvidenceRefs    []string `json:"evidence_refs"`
	Seller          string   `json:"seller"`
	Buyer           string   `json:"buyer"`
	TradeCap        string   `json:"trade_cap"`
	SellersPart     string   `json:"sellers_part"`
	ResolutionDelay int64    `json:"resolution_delay_seconds"`
}

type tradeActionRequest struct {
	Sig          string   `json:"sig"`
	Token        string   `json:"token"`
	EvidenceRefs []string `json:"evidence_refs"`
	Buyer        string   `json:"buyer,omitempty"`
	FavorSeller  bool     `json:"favor_seller,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

type tradeView struct {
	TradeID             string   `json:"trade_id"`
	Seller              string   `json:"seller"`
	Buyer               string   `json:"buyer"`
	TradeCap            string   `json:"trade_cap"`
	SellersPart         string   `json:"sellers_part"`
	EvidenceRefs        []string `json:"evidence_refs,omitempty"`
	Status              string   `json:"status"`
	CreatedAt           int64    `json:"created_at"`
	ResolutionWindowEnd int64    `json:"resolution_window_end"`
	ResolutionReason    string   `json:"resolution_reason,omitempty"`
	ResolvedForSeller   bool     `json:"resolved_for_seller,omitempty"`
}

func newTradeView(t *escrow.Trade) tradeView {
	return tradeView{
		TradeID:             t.ID,
		Seller:              addressString(t.Seller),
		Buyer:               addressString(t.Buyer),
		TradeCap:            t.TradeCap.String(),
		SellersPart:         t.SellersPart.String(),
		EvidenceRefs:        t.EvidenceRefs,
		Status:              t.Status.String(),
		CreatedAt:           t.CreatedAt,
		ResolutionWindowEnd: t.ResolutionWindowEnd,
		ResolutionReason:    t.ResolutionReason,
		ResolvedForSeller:   t.ResolvedForSeller,
	}
}

func (s *Server) handleTradeRegister(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sig, proofToken, err := decodeProof(req.Sig, req.Token)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	seller, err := ParseAddress(req.Seller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("seller: %w", err))
		return
	}
	buyer, err := ParseAddress(req.Buyer)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("buyer: %w", err))
		return
	}
	tradeCap, err := parseAmount(req.TradeCap)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("trade_cap: %w", err))
		return
	}
	sellersPart, err := parseAmount(req.SellersPart)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("sellers_part: %w", err))
		return
	}

	s.mu.Lock()
	trade, err := s.trades.Register(sig, proofToken, req.TradeID, req.EvidenceRefs, seller, buyer, tradeCap, sellersPart, req.ResolutionDelay)
	s.mu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newTradeView(trade))
}

func (s *Server) handleTradeGet(w http.ResponseWriter, r *http.Request) {
	trade, err := s.trades.GetTrade(chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTradeView(trade))
}

func (s *Server) tradeAction(w http.ResponseWriter, r *http.Request, run func(sig []byte, token [32]byte, id string, req tradeActionRequest) error) {
	var req tradeActionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sig, proofToken, err := decodeProof(req.Sig, req.Token)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	err = run(sig, proofToken, id, req)
	s.mu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	trade, err := s.trades.GetTrade(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newTradeView(trade))
}

func (s *Server) handleTradeValidate(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, func(sig []byte, token [32]byte, id string, req tradeActionRequest) error {
		return s.trades.Validate(sig, token, id, req.EvidenceRefs)
	})
}

func (s *Server) handleTradePay(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, func(sig []byte, token [32]byte, id string, req tradeActionRequest) error {
		buyer, err := ParseAddress(req.Buyer)
		if err != nil {
			return fmt.Errorf("buyer: %w", err)
		}
		return s.trades.Pay(sig, token, id, req.EvidenceRefs, buyer)
	})
}

func (s *Server) handleTradeFinish(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, func(sig []byte, token [32]byte, id string, req tradeActionRequest) error {
		return s.trades.Finish(sig, token, id, req.EvidenceRefs)
	})
}

func (s *Server) handleTradeRelease(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, func(sig []byte, token [32]byte, id string, req tradeActionRequest) error {
		buyer, err := ParseAddress(req.Buyer)
		if err != nil {
			return fmt.Errorf("buyer: %w", err)
		}
		return s.trades.Release(sig, token, id, req.EvidenceRefs, buyer)
	})
}

func (s *Server) handleTradeResolve(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, func(sig []byte, token [32]byte, id string, req tradeActionRequest) error {
		return s.trades.Resolve(sig, token, id, req.EvidenceRefs, req.FavorSeller, req.Reason)
	})
}

type saleRequestBody struct {
	RequestID  string `json:"request_id"`
	Caller     string `json:"caller"`
	Sig        string `json:"sig"`
	Token      string `json:"token"`
	Seller     string `json:"seller"`
	Amount     string `json:"amount"`
	NetworkFee string `json:"network_fee"`
}

type saleProcessBody struct {
	Sig     string `json:"sig"`
	Token   string `json:"token"`
	Approve bool   `json:"approve"`
}

type saleView struct {
	RequestID  string `json:"request_id"`
	Requester  string `json:"requester"`
	Amount     string `json:"amount"`
	NetworkFee string `json:"network_fee"`
	CreatedAt  int64  `json:"created_at"`
	Status     string `json:"status"`
}

func newSaleView(req *hotwallet.SaleRequest) saleView {
	return saleView{
		RequestID:  req.ID,
		Requester:  addressString(req.Requester),
		Amount:     req.Amount.String(),
		NetworkFee: req.NetworkFee.String(),
		CreatedAt:  req.CreatedAt,
		Status:     req.Status.String(),
	}
}

func (s *Server) handleSaleRequest(w http.ResponseWriter, r *http.Request) {
	var req saleRequestBody
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sig, proofToken, err := decodeProof(req.Sig, req.Token)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := ParseAddress(req.Caller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("caller: %w", err))
		return
	}
	seller, err := ParseAddress(req.Seller)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("seller: %w", err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}
	networkFee := big.NewInt(0)
	if strings.TrimSpace(req.NetworkFee) != "" {
		if networkFee, err = parseAmount(req.NetworkFee); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("network_fee: %w", err))
			return
		}
	}

	s.mu.Lock()
	sale, err := s.otc.PreAuthorizedSell(caller, sig, proofToken, req.RequestID, seller, amount, networkFee)
	s.mu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSaleView(sale))
}

func (s *Server) handleSaleGet(w http.ResponseWriter, r *http.Request) {
	sale, err := s.otc.GetSaleRequest(chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSaleView(sale))
}

func (s *Server) handleSaleProcess(w http.ResponseWriter, r *http.Request) {
	var req saleProcessBody
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	sig, proofToken, err := decodeProof(req.Sig, req.Token)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	err = s.otc.ProcessSaleRequest(sig, proofToken, id, req.Approve)
	s.mu.Unlock()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	sale, err := s.otc.GetSaleRequest(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSaleView(sale))
}

func (s *Server) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	addr, err := ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address": addressString(addr),
		"balance": balance.String(),
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, _ *http.Request) {
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	bars, err := s.ledger.GoldBars()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_supply": supply.String(),
		"gold_bars":    bars,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps engine sentinels onto HTTP statuses so relayers can
// tell a bad signature from a timer that has not elapsed.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, escrow.ErrTradeNotFound),
		errors.Is(err, hotwallet.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, escrow.ErrTradeAlreadyExists),
		errors.Is(err, escrow.ErrInvalidTradeState),
		errors.Is(err, hotwallet.ErrRequestAlreadyExists),
		errors.Is(err, hotwallet.ErrRequestAlreadyProcessed),
		errors.Is(err, proof.ErrProofReplayed):
		status = http.StatusConflict
	case errors.Is(err, proof.ErrUnauthorizedSigner),
		errors.Is(err, escrow.ErrBuyerMismatch),
		errors.Is(err, hotwallet.ErrNotManager),
		errors.Is(err, hotwallet.ErrNotSender),
		errors.Is(err, token.ErrNotOwner),
		errors.Is(err, token.ErrNotMinter),
		errors.Is(err, token.ErrNotSender):
		status = http.StatusForbidden
	case errors.Is(err, proof.ErrInvalidProof):
		status = http.StatusBadRequest
	case errors.Is(err, escrow.ErrTooEarlyToResolve):
		status = http.StatusTooEarly
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, hotwallet.ErrInsufficientFunds),
		errors.Is(err, hotwallet.ErrAmountExceedsLimit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	s.writeError(w, status, err)
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func decodeProof(sigHex, tokenHex string) ([]byte, [32]byte, error) {
	var token [32]byte
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sigHex), "0x"))
	if err != nil {
		return nil, token, fmt.Errorf("sig: %w", err)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(tokenHex), "0x"))
	if err != nil {
		return nil, token, fmt.Errorf("token: %w", err)
	}
	if len(raw) != 32 {
		return nil, token, errors.New("token: must be 32 bytes")
	}
	copy(token[:], raw)
	return sig, token, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func addressString(raw [20]byte) string {
	return crypto.NewAddress(crypto.AUZPrefix, raw[:]).String()
}
