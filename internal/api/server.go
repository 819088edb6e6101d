package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"Apostille/internal/keys"
	"Apostille/internal/logger"
	"Apostille/internal/registry"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 20 // 1 MB
)

// IdentityLookup resolves registry records for GET /identities/{address}.
type IdentityLookup interface {
	GetIdentity(addr keys.Address) (*registry.IdentityRecord, error)
}

// Server is the verification HTTP API.
type Server struct {
	addr       string         // addr is the HTTP listen address
	identities IdentityLookup // identities serves identity records; nil disables the route
	server     *http.Server   // server is the underlying HTTP server
}

// New creates a verification server. identities may be nil.
func New(addr string, identities IdentityLookup) *Server {
	return &Server{addr: addr, identities: identities}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify", s.handleVerify)
	mux.HandleFunc("POST /classify", s.handleClassify)
	mux.HandleFunc("POST /operations/verify", s.handleOperation)
	mux.HandleFunc("GET /identities/{address}", s.handleIdentity)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("verification api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleIdentity handles GET /identities/{address} requests.
func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	if s.identities == nil {
		writeError(w, http.StatusServiceUnavailable, "registry not available")
		return
	}

	addr, err := keys.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.identities.GetIdentity(addr)
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, "identity not found")
		return
	}
	if err != nil {
		logger.Error("identity lookup failed", "address", addr.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		Address:           rec.Address.String(),
		Network:           rec.Address.Network().String(),
		PublicKey:         hex.EncodeToString(rec.PublicKey),
		DerivingPublicKey: hex.EncodeToString(rec.DerivingPublicKey),
		Multisig:          rec.Multisig,
		CreatedAt:         rec.CreatedAt,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
