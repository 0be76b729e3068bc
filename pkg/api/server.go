package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hlsdk/params"
	"github.com/uhyunpark/hlsdk/pkg/crypto"
	"github.com/uhyunpark/hlsdk/pkg/exchange"
	"github.com/uhyunpark/hlsdk/pkg/storage"
	"github.com/uhyunpark/hlsdk/pkg/util"
)

const maxBodyBytes = 1 << 20

// Server is a local stand-in for the exchange: it verifies signed actions,
// keeps orders in a journal and pushes order updates over WebSocket. It
// does not match orders; everything placed rests until cancelled.
type Server struct {
	router  *mux.Router
	hub     *Hub
	cfg     params.Simulator
	assets  *exchange.Universe
	journal storage.Journal
	actions *crypto.ActionSigner
	clock   util.Clock
	logger  *zap.SugaredLogger

	mu         sync.Mutex // serialises actions
	lastOid    uint64
	lastNonces map[common.Address]uint64
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Server) { s.logger = l } }

func WithClock(c util.Clock) Option { return func(s *Server) { s.clock = c } }

// WithMainnet makes the server verify signatures made with the mainnet
// agent source.
func WithMainnet(mainnet bool) Option {
	return func(s *Server) { s.actions = crypto.NewActionSigner(mainnet) }
}

// NewServer creates the simulator. Oids continue after the highest one in
// the journal, so a reopened pebble journal never reuses an id.
func NewServer(cfg params.Simulator, assets *exchange.Universe, journal storage.Journal, opts ...Option) (*Server, error) {
	last, err := journal.LastOid()
	if err != nil {
		return nil, fmt.Errorf("failed to read last oid: %w", err)
	}

	s := &Server{
		router:     mux.NewRouter(),
		cfg:        cfg,
		assets:     assets,
		journal:    journal,
		actions:    crypto.NewActionSigner(false),
		clock:      util.RealClock{},
		lastOid:    last,
		lastNonces: make(map[common.Address]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = util.SugarOrNop(s.logger)
	s.hub = NewHub(s.logger)
	go s.hub.Run()

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/exchange", s.handleExchange).Methods("POST")
	s.router.HandleFunc("/info", s.handleInfo).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("api_server_starting", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops the WebSocket hub. The journal belongs to the caller.
func (s *Server) Close() {
	select {
	case <-s.hub.quit:
	default:
		s.hub.Stop()
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	var req ExchangeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Action) == 0 {
		respondError(w, http.StatusBadRequest, "missing action", "")
		return
	}

	action, err := exchange.DecodeAction(req.Action)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid action", err.Error())
		return
	}

	var vault *common.Address
	if req.VaultAddress != nil {
		if !common.IsHexAddress(*req.VaultAddress) {
			respondError(w, http.StatusBadRequest, "invalid vault address", *req.VaultAddress)
			return
		}
		v := common.HexToAddress(*req.VaultAddress)
		vault = &v
	}

	signer, err := s.actions.RecoverActionSigner(req.Action, req.Nonce, vault, req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature", err.Error())
		return
	}
	user := signer
	if vault != nil {
		user = *vault
	}

	resp, err := s.apply(signer, user, req.Nonce, action)
	if err != nil {
		respondJSON(w, errResponse(err.Error()))
		return
	}
	respondJSON(w, resp)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req InfoRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch req.Type {
	case "meta":
		respondJSON(w, exchange.Meta{Universe: s.assets.Assets()})

	case "openOrders":
		user, ok := parseUser(w, req.User)
		if !ok {
			return
		}
		orders, err := s.openOrders(user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list orders", err.Error())
			return
		}
		respondJSON(w, orders)

	case "orderStatus":
		user, ok := parseUser(w, req.User)
		if !ok {
			return
		}
		var ref exchange.OidOrCloid
		if err := json.Unmarshal(req.Oid, &ref); err != nil {
			respondError(w, http.StatusBadRequest, "invalid oid", err.Error())
			return
		}
		resp, err := s.orderStatus(user, ref)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to look up order", err.Error())
			return
		}
		respondJSON(w, resp)

	default:
		respondError(w, http.StatusBadRequest, "unknown info type", req.Type)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Info queries
// ==============================

func (s *Server) openOrders(user string) ([]exchange.BasicOrder, error) {
	entries, err := s.journal.List("")
	if err != nil {
		return nil, err
	}

	orders := make([]exchange.BasicOrder, 0, len(entries))
	for _, e := range entries {
		if e.User != user || e.Status != storage.StatusOpen || e.Oid == nil {
			continue
		}
		orders = append(orders, basicOrder(e))
	}
	return orders, nil
}

func (s *Server) orderStatus(user string, ref exchange.OidOrCloid) (*exchange.OrderStatusResponse, error) {
	entry, err := s.journal.Lookup(ref)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && (entry.User != user || entry.Oid == nil)) {
		return &exchange.OrderStatusResponse{Status: "unknownOid"}, nil
	}
	if err != nil {
		return nil, err
	}
	update := orderUpdate(entry)
	return &exchange.OrderStatusResponse{Status: "order", Order: &update}, nil
}

// ==============================
// Helper Functions
// ==============================

func parseUser(w http.ResponseWriter, user string) (string, bool) {
	if !common.IsHexAddress(user) {
		respondError(w, http.StatusBadRequest, "invalid user address", user)
		return "", false
	}
	return userKey(common.HexToAddress(user)), true
}

func userKey(addr common.Address) string { return strings.ToLower(addr.Hex()) }

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
