package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rfigueroa/bankfeed/pkg/balance"
	"github.com/rfigueroa/bankfeed/pkg/config"
	"github.com/rfigueroa/bankfeed/pkg/dedup"
	"github.com/rfigueroa/bankfeed/pkg/export"
	"github.com/rfigueroa/bankfeed/pkg/ingest"
	"github.com/rfigueroa/bankfeed/pkg/mapping"
	"github.com/rfigueroa/bankfeed/pkg/models"
	"github.com/rfigueroa/bankfeed/pkg/store"
)

// Server exposes the ingestion core over a JSON API.
type Server struct {
	config     *config.Config
	logger     *log.Logger
	mux        *http.ServeMux
	registry   *mapping.Registry
	pipeline   *ingest.Pipeline
	engine     *dedup.Engine
	aggregator *balance.Aggregator
	store      store.Store
}

// New wires the engines onto one store handle. The caller owns the store
// lifecycle.
func New(cfg *config.Config, st store.Store, registry *mapping.Registry, logger *log.Logger) *Server {
	s := &Server{
		config:     cfg,
		logger:     logger,
		mux:        http.NewServeMux(),
		registry:   registry,
		pipeline:   ingest.New(registry, logger),
		engine:     dedup.New(st, logger),
		aggregator: balance.New(st),
		store:      st,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/import", s.withLogging(s.handleImport))
	s.mux.HandleFunc("/api/institutions", s.withLogging(s.handleInstitutions))
	s.mux.HandleFunc("/api/accounts", s.withLogging(s.handleAccounts))
	s.mux.HandleFunc("/api/accounts/", s.withLogging(s.handleAccountSub))
}

// ---------------- import handler ----------------

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	file, header, err := r.FormFile("statement")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "statement file required", err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	accountID := r.FormValue("account_id")
	institutionID := r.FormValue("institution_id")
	if accountID == "" {
		s.respondError(w, r, http.StatusBadRequest, "account_id required", nil)
		return
	}
	if institutionID == "" {
		s.respondError(w, r, http.StatusBadRequest, "institution_id required", nil)
		return
	}

	report, err := s.pipeline.IngestBytes(data, header.Filename, accountID, institutionID)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, mapping.ErrUnknownInstitution) {
			status = http.StatusNotFound
		}
		s.respondError(w, r, status, "failed to process statement", err)
		return
	}

	commit, err := s.engine.Commit(r.Context(), accountID, report.Accepted)
	if err != nil {
		// A cancelled commit still reports the applied prefix.
		s.respondError(w, r, http.StatusBadGateway, "commit failed", err)
		return
	}

	rejected := make([]map[string]any, 0, len(report.Rejected))
	for _, rowErr := range report.Rejected {
		rejected = append(rejected, map[string]any{
			"row":    rowErr.Row,
			"kind":   string(rowErr.Kind),
			"column": rowErr.Column,
			"value":  rowErr.Value,
		})
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"file":     header.Filename,
		"rows":     report.RowCount,
		"accepted": len(report.Accepted),
		"inserted": commit.Inserted,
		"skipped":  commit.Skipped,
		"rejected": rejected,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// ---------------- institution handlers ----------------

func (s *Server) handleInstitutions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if err := s.writeJSON(w, http.StatusOK, map[string]any{
			"status":       "success",
			"institutions": s.registry.List(),
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
	case http.MethodPost:
		var inst models.Institution
		if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid institution body", err)
			return
		}
		if err := s.registry.Register(&inst); err != nil {
			s.respondError(w, r, http.StatusUnprocessableEntity, err.Error(), err)
			return
		}
		if err := s.writeJSON(w, http.StatusCreated, map[string]any{
			"status":        "success",
			"institutionId": inst.ID,
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// ---------------- account handlers ----------------

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records, err := s.store.Find(r.Context(), store.CollectionAccounts, "", nil)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to list accounts", err)
			return
		}
		accounts := make([]*models.Account, 0, len(records))
		for _, record := range records {
			var account models.Account
			if err := json.Unmarshal(record.Value, &account); err != nil {
				s.respondError(w, r, http.StatusInternalServerError, "corrupt account record", err)
				return
			}
			accounts = append(accounts, &account)
		}
		if err := s.writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"accounts": accounts,
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
	case http.MethodPost:
		var account models.Account
		if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid account body", err)
			return
		}
		if account.ID == "" {
			account.ID = models.NewAccount(account.Name, account.InstitutionID, account.AccountType).ID
		}
		if err := account.Validate(); err != nil {
			s.respondError(w, r, http.StatusUnprocessableEntity, err.Error(), err)
			return
		}
		value, err := json.Marshal(&account)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to encode account", err)
			return
		}
		inserted, err := s.store.UpsertIfAbsent(r.Context(), store.CollectionAccounts, account.ID, value)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to save account", err)
			return
		}
		status := http.StatusCreated
		if !inserted {
			status = http.StatusConflict
		}
		if err := s.writeJSON(w, status, map[string]any{
			"status":    "success",
			"accountId": account.ID,
			"created":   inserted,
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

// handleAccountSub routes /api/accounts/{id}/balance and
// /api/accounts/{id}/export.
func (s *Server) handleAccountSub(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
	accountID, action, _ := strings.Cut(rest, "/")
	if accountID == "" {
		s.respondError(w, r, http.StatusBadRequest, "account id required", nil)
		return
	}

	switch action {
	case "balance":
		opts := balance.Options{NetOfTax: s.config.NetOfTax}
		if q := r.URL.Query().Get("net_of_tax"); q != "" {
			opts.NetOfTax = q == "true" || q == "1"
		}
		report, err := s.aggregator.Aggregate(r.Context(), accountID, opts)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to aggregate balance", err)
			return
		}
		if err := s.writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"account": accountID,
			"balance": report,
		}); err != nil {
			s.logger.Warn("failed to write json response", "err", err)
		}
	case "export":
		txns, err := s.aggregator.Transactions(r.Context(), accountID)
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to read transactions", err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", accountID+".csv"))
		if err := export.WriteCSV(w, txns, nil); err != nil {
			s.logger.Warn("failed to write csv response", "err", err)
		}
	default:
		s.respondError(w, r, http.StatusNotFound, "unknown action", nil)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
