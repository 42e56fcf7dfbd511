/*
handlers.go - HTTP API handlers for the loan calculator

PURPOSE:
  Exposes the amortization engine via REST API. Handles HTTP request and
  response, JSON serialization, caching and history, and delegates all
  pricing to the amortization package.

ENDPOINTS:
  Calculation:
    POST   /api/calculate-loan-amortization  Compute schedule + analysis
    POST   /api/calculate                    Same, older path

  Export:
    POST   /api/export-excel                 Calculate response -> .xlsx

  History:
    GET    /api/calculations                 Recent calculations
    GET    /api/calculations/{id}            One calculation with its result
    GET    /api/calculations/{id}/export     Stored calculation -> .xlsx

REQUEST FLOW (calculate):
  1. Decode factory.LoanJSON and convert it to a LoanConfig
  2. Fingerprint the normalized request and try the result cache
  3. On a miss, run amortization.Analyze
  4. Record the calculation in SQLite and cache the encoded response
  5. Write the response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Undecodable body, invalid loan, non-convergence, negative amortization
  - 404: Calculation not found
  - 500: Storage and other internal errors
  The cache is best effort: a cache failure is logged and the request is
  computed as if it missed. A failed history write is logged and the response
  is returned without an id.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/loan-engine/amortization"
	"github.com/warp/loan-engine/cache"
	"github.com/warp/loan-engine/export"
	"github.com/warp/loan-engine/factory"
	"github.com/warp/loan-engine/store/sqlite"
)

// maxBodyBytes bounds request bodies. An export of a long daily schedule is
// the largest legitimate payload.
const maxBodyBytes = 16 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Cache       cache.Cache
	LoanFactory *factory.LoanFactory
	Metrics     *Metrics
	Logger      *zap.Logger
}

// NewHandler creates a new handler. A nil cache disables caching; a nil
// logger discards logs.
func NewHandler(store *sqlite.Store, c cache.Cache, metrics *Metrics, logger *zap.Logger) *Handler {
	if c == nil {
		c = cache.Nop{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		Cache:       c,
		LoanFactory: factory.NewLoanFactory(),
		Metrics:     metrics,
		Logger:      logger,
	}
}

// requestLogger tags the handler logger with the chi request ID.
func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	return h.Logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

// CalculateLoanAmortization computes the schedule and analysis for a loan.
func (h *Handler) CalculateLoanAmortization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	var req factory.LoanJSON
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.LoanFactory.FromJSON(req)
	if err != nil {
		h.Metrics.calculations.WithLabelValues(loanType(req.IsAdjustable()), amortization.Kind(err)).Inc()
		writeError(w, http.StatusBadRequest, "Invalid loan request", err)
		return
	}
	kind := loanType(cfg.ARM != nil)

	// The normalized form, so equivalent requests share a key.
	normalized := h.LoanFactory.ToJSON(cfg)
	key, err := cache.Fingerprint(normalized)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fingerprint request", err)
		return
	}

	if body, ok := h.cacheGet(r, key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	start := time.Now()
	analysis, err := amortization.Analyze(cfg, amortization.WithLogger(logger))
	h.Metrics.calcDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	h.Metrics.calculations.WithLabelValues(kind, amortization.Kind(err)).Inc()
	if err != nil {
		if amortization.IsClientError(err) {
			logger.Info("calculation rejected", zap.String("kind", amortization.Kind(err)), zap.Error(err))
			writeError(w, http.StatusBadRequest, "Calculation failed", err)
			return
		}
		logger.Error("calculation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Calculation failed", err)
		return
	}
	h.Metrics.scheduleLength.Observe(float64(analysis.Summary.ActualLoanTerm))

	resp := toAnalysisResponse(cfg, analysis)
	resp.ID = uuid.NewString()
	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
		return
	}
	if err := h.saveCalculation(r, resp.ID, key, normalized, cfg, analysis, body); err != nil {
		logger.Warn("failed to record calculation", zap.Error(err))
		resp.ID = ""
		if body, err = json.Marshal(resp); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode response", err)
			return
		}
	}

	if err := h.Cache.Set(ctx, key, body); err != nil {
		logger.Warn("failed to cache calculation", zap.Error(err))
	}

	w.Header().Set("X-Cache", "MISS")
	writeRawJSON(w, http.StatusOK, body)
}

func (h *Handler) cacheGet(r *http.Request, key string) ([]byte, bool) {
	body, ok, err := h.Cache.Get(r.Context(), key)
	switch {
	case err != nil:
		h.Metrics.cacheLookups.WithLabelValues("error").Inc()
		h.requestLogger(r).Warn("cache lookup failed", zap.Error(err))
		return nil, false
	case ok:
		h.Metrics.cacheLookups.WithLabelValues("hit").Inc()
		return body, true
	default:
		h.Metrics.cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
}

func (h *Handler) saveCalculation(r *http.Request, id, key string, req factory.LoanJSON, cfg amortization.LoanConfig, a *amortization.Analysis, response []byte) error {
	if h.Store == nil {
		return errors.New("no history store configured")
	}

	requestJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	_, err = h.Store.SaveCalculation(r.Context(), sqlite.CalculationRecord{
		ID:               id,
		LoanAmount:       cfg.Principal,
		PaymentFrequency: string(cfg.Frequency),
		LoanTerm:         cfg.LoanTerm,
		Adjustable:       cfg.ARM != nil,
		PaymentAmount:    a.Summary.PaymentAmount,
		TotalInterest:    a.Summary.TotalInterest,
		TotalPayment:     a.Summary.TotalPayment,
		ActualLoanTerm:   a.Summary.ActualLoanTerm,
		Fingerprint:      key,
		RequestJSON:      requestJSON,
		ResponseJSON:     response,
	})
	return err
}

// =============================================================================
// EXPORT ENDPOINTS
// =============================================================================

// ExportExcel renders a calculate response, posted back by the client, as a
// spreadsheet.
func (h *Handler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	var report export.Report
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&report); err != nil {
		h.Metrics.exports.WithLabelValues("request", "invalid").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.writeWorkbook(w, r, "request", report)
}

// ExportCalculation renders a stored calculation as a spreadsheet.
func (h *Handler) ExportCalculation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadCalculation(w, r)
	if !ok {
		return
	}

	var report export.Report
	if err := json.Unmarshal(rec.ResponseJSON, &report); err != nil {
		h.Metrics.exports.WithLabelValues("history", "error").Inc()
		writeError(w, http.StatusInternalServerError, "Stored calculation is unreadable", err)
		return
	}
	h.writeWorkbook(w, r, "history", report)
}

func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, source string, report export.Report) {
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report); err != nil {
		h.Metrics.exports.WithLabelValues(source, "error").Inc()
		h.requestLogger(r).Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	h.Metrics.exports.WithLabelValues(source, "ok").Inc()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, &buf); err != nil {
		h.requestLogger(r).Warn("failed to send workbook", zap.Error(err))
	}
}

// =============================================================================
// HISTORY ENDPOINTS
// =============================================================================

// ListCalculations returns recent calculations, newest first.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	limit := sqlite.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500", err)
			return
		}
		limit = n
	}

	records, err := h.Store.ListCalculations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}
	total, err := h.Store.CountCalculations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count calculations", err)
		return
	}

	resp := ListCalculationsResponse{
		Calculations: make([]CalculationSummaryDTO, 0, len(records)),
		Total:        total,
	}
	for _, rec := range records {
		resp.Calculations = append(resp.Calculations, toCalculationSummaryDTO(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCalculation returns one stored calculation with its request and result.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadCalculation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, CalculationDTO{
		CalculationSummaryDTO: toCalculationSummaryDTO(*rec),
		Request:               rec.RequestJSON,
		Result:                rec.ResponseJSON,
	})
}

// loadCalculation resolves the {id} URL parameter, writing the error response
// itself when it cannot.
func (h *Handler) loadCalculation(w http.ResponseWriter, r *http.Request) (*sqlite.CalculationRecord, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calculation ID", err)
		return nil, false
	}

	rec, err := h.Store.GetCalculation(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Calculation not found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get calculation", err)
		return nil, false
	}
	return rec, true
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the history database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		resp.Code = amortization.Kind(err)
		if resp.Code == "internal" {
			resp.Code = ""
		}
	}
	writeJSON(w, status, resp)
}

func loanType(adjustable bool) string {
	if adjustable {
		return "arm"
	}
	return "fixed"
}
