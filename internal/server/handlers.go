package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Hari-1410/H4shQ4x-2026/internal/domain"
	"github.com/Hari-1410/H4shQ4x-2026/internal/logging"
	"github.com/Hari-1410/H4shQ4x-2026/internal/scoring"
	"github.com/Hari-1410/H4shQ4x-2026/internal/service"
	"github.com/Hari-1410/H4shQ4x-2026/internal/txgraph"
)

const defaultMaxBodyBytes = 1 << 20

// AnalysisService is the behaviour the handlers need from the service layer.
type AnalysisService interface {
	Analyze(ctx context.Context, records []txgraph.Record) (domain.Assessment, error)
	AccountHistory(ctx context.Context, account string, limit int) (domain.AccountHistory, error)
	Explainability() scoring.ExplainabilityReport
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger       *slog.Logger
	service      AnalysisService
	maxBodyBytes int64
}

// NewAPIHandlers constructs an APIHandlers instance. A non-positive
// maxBodyBytes selects a 1 MiB cap.
func NewAPIHandlers(logger *slog.Logger, svc AnalysisService, maxBodyBytes int64) *APIHandlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &APIHandlers{
		logger:       logger,
		service:      svc,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *APIHandlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var envelope struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := decodeJSON(r, &envelope); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if envelope.Transactions == nil {
		writeError(w, http.StatusBadRequest, `"transactions" is required`)
		return
	}
	payload, err := decodeTransactions(envelope.Transactions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	assessment, err := h.service.Analyze(r.Context(), payload.Records())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assessment)
}

func (h *APIHandlers) handleExplainability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	respondJSON(w, http.StatusOK, h.service.Explainability())
}

func (h *APIHandlers) handleAccountAssessments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/accounts/")
	account, ok := strings.CutSuffix(strings.TrimSuffix(rest, "/"), "/assessments")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	account = strings.Trim(account, "/")
	if account == "" {
		writeError(w, http.StatusBadRequest, "account ID is required")
		return
	}

	history, err := h.service.AccountHistory(r.Context(), account, parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("failed to fetch account history", "error", err, "account", account)
		writeError(w, http.StatusInternalServerError, "failed to fetch account history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *txgraph.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error": vErr.Error(),
			"field": vErr.Field,
			"index": vErr.Index,
		})
	case errors.Is(err, service.ErrBatchTooLarge), errors.Is(err, service.ErrTooManyAccounts):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrDuplicateBatch):
		writeError(w, http.StatusConflict, "batch already submitted")
	case errors.Is(err, service.ErrAnalysisTimeout):
		writeError(w, http.StatusServiceUnavailable, "analysis timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
	default:
		logging.FromContext(r.Context(), h.logger).Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// decodeTransactions reads each record leniently: columns other than the
// transfer fields are ignored. A value of the wrong JSON type is reported as a
// validation error on that field.
func decodeTransactions(raw []json.RawMessage) (domain.BatchPayload, error) {
	batch := domain.BatchPayload{Transactions: make([]domain.TransactionPayload, len(raw))}
	for i, item := range raw {
		if err := json.Unmarshal(item, &batch.Transactions[i]); err != nil {
			field := "record"
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field != "" {
				field = typeErr.Field
			}
			return domain.BatchPayload{}, &txgraph.ValidationError{Index: i, Field: field, Reason: "has an invalid JSON value"}
		}
	}
	return batch, nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return v
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
