// Package api exposes the tracker over a RESTful HTTP interface:
// wallet CRUD, record listings, token aggregates and tracker control.
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"solana-wallet-tracker/internal/storage"
	"solana-wallet-tracker/internal/tracker"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
)

// Server routes HTTP requests to the wallet store, record store and
// tracker. Wallet mutations are forwarded to the tracker so live
// subscriptions follow the stored state.
type Server struct {
	wallets storage.WalletStore
	records storage.RecordStore
	tracker *tracker.Tracker
	logger  *log.Logger
	router  *mux.Router
}

// Options contains configuration for creating a Server.
type Options struct {
	WalletStore storage.WalletStore
	RecordStore storage.RecordStore
	Tracker     *tracker.Tracker
	Logger      *log.Logger

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// NewServer creates an API server and builds its route table.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		wallets: opts.WalletStore,
		records: opts.RecordStore,
		tracker: opts.Tracker,
		logger:  logger,
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if opts.MetricsHandler != nil {
		s.router.Handle("/metrics", opts.MetricsHandler).Methods("GET")
	}

	s.router.HandleFunc("/wallets", s.handleListWallets).Methods("GET")
	s.router.HandleFunc("/wallets", s.handleCreateWallet).Methods("POST")
	s.router.HandleFunc("/wallets/{id}", s.handleGetWallet).Methods("GET")
	s.router.HandleFunc("/wallets/{id}", s.handleUpdateWallet).Methods("PUT")
	s.router.HandleFunc("/wallets/{id}", s.handleDeleteWallet).Methods("DELETE")
	s.router.HandleFunc("/transactions", s.handleListRecords).Methods("GET")
	s.router.HandleFunc("/tokens", s.handleListTokens).Methods("GET")
	s.router.HandleFunc("/tracker", s.handleTrackerStatus).Methods("GET")
	s.router.HandleFunc("/tracker", s.handleTrackerControl).Methods("POST")

	return s
}

// Handler returns the route table for mounting into an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// NewHTTPServer wraps the route table in an http.Server listening on
// addr, with read and write timeouts enforced.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}
