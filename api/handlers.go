/*
handlers.go - HTTP API handlers for the PTO service

PURPOSE:
  Exposes the PTO domain via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the pto.Service.

ENDPOINTS:
  Self-service:
    GET    /api/me/pto/balance               Current available hours
    GET    /api/me/pto/requests              List own requests (filterable)
    POST   /api/me/pto/requests              Submit a request
    GET    /api/me/pto/requests/{id}         Get one own request
    PATCH  /api/me/pto/requests/{id}/cancel  Cancel a pending request

  Manager:
    POST   /api/pto/requests/{id}/approve    Approve and post usage hours
    POST   /api/pto/requests/{id}/reject     Reject without ledger impact

  Calendar:
    GET    /api/holidays                     Holidays, optional from/to range

IDENTITY:
  The "current employee" is the configured default. When employee
  overrides are enabled (development), the override_employee_id query
  parameter selects a different employee.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid state transitions
  - 404: Not found (including requests owned by someone else)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - pto/service.go: Domain logic
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/pto-service/logger"
	"github.com/warp/pto-service/pto"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *pto.Service
	Log     *logger.Logger

	// Development identity shim
	DefaultEmployeeID     int64
	AllowEmployeeOverride bool

	validate *validator.Validate
}

// NewHandler creates a new handler around the domain service.
func NewHandler(service *pto.Service, log *logger.Logger, defaultEmployeeID int64, allowOverride bool) *Handler {
	return &Handler{
		Service:               service,
		Log:                   log,
		DefaultEmployeeID:     defaultEmployeeID,
		AllowEmployeeOverride: allowOverride,
		validate:              validator.New(),
	}
}

// currentEmployeeID resolves the acting employee for /me routes. Returns
// false after writing the error response when the override is malformed.
func (h *Handler) currentEmployeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := h.DefaultEmployeeID
	if !h.AllowEmployeeOverride {
		return id, true
	}
	raw := r.URL.Query().Get("override_employee_id")
	if raw == "" {
		return id, true
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid override_employee_id", err)
		return 0, false
	}
	return parsed, true
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the current available PTO hours.
// GET /api/me/pto/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.currentEmployeeID(w, r)
	if !ok {
		return
	}

	balance, err := h.Service.Balance(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to compute balance")
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID:     employeeID,
		AvailableHours: balance.String(),
	})
}

// =============================================================================
// REQUESTS
// =============================================================================

// CreateRequest submits a new time-off request.
// POST /api/me/pto/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.currentEmployeeID(w, r)
	if !ok {
		return
	}

	var body CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, _ := time.Parse(dayFormat, body.StartDate)
	end, _ := time.Parse(dayFormat, body.EndDate)

	req, err := h.Service.CreateRequest(r.Context(), employeeID, start, end, body.Notes)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to create request")
		return
	}

	writeJSON(w, http.StatusCreated, toRequestDTO(*req))
}

// ListRequests lists the current employee's requests, newest start date
// first.
// GET /api/me/pto/requests?status=&start_from=&start_to=&limit=&offset=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.currentEmployeeID(w, r)
	if !ok {
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	requests, err := h.Service.ListRequests(r.Context(), employeeID, filter)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// GetRequest returns one of the current employee's requests. A request
// belonging to someone else returns 404, same as a missing one.
// GET /api/me/pto/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.currentEmployeeID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.Service.GetRequest(r.Context(), employeeID, requestID)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to get request")
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// CancelRequest cancels one of the current employee's pending requests.
// PATCH /api/me/pto/requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.currentEmployeeID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.Service.CancelRequest(r.Context(), employeeID, requestID)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to cancel request")
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// ApproveRequest approves a pending request and posts the usage hours.
// POST /api/pto/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.Service.Approve(r.Context(), requestID)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to approve request")
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// RejectRequest rejects a pending request. No ledger entry is written.
// POST /api/pto/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, err := h.Service.Reject(r.Context(), requestID)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to reject request")
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(*req))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the holiday calendar, optionally bounded.
// GET /api/holidays?from=2025-01-01&to=2025-12-31
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	holidays, err := h.Service.Holidays(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, r, err, "Failed to list holidays")
		return
	}

	writeJSON(w, http.StatusOK, toHolidayDTOs(holidays))
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid request id", err)
		return 0, false
	}
	return id, true
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dayFormat, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseListFilter(r *http.Request) (pto.ListFilter, error) {
	var f pto.ListFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := pto.Status(raw)
		switch status {
		case pto.StatusPending, pto.StatusApproved, pto.StatusRejected, pto.StatusCancelled:
			f.Status = &status
		default:
			return f, errors.New("unknown status: " + raw)
		}
	}

	var err error
	if f.StartFrom, err = parseDateParam(r, "start_from"); err != nil {
		return f, err
	}
	if f.StartTo, err = parseDateParam(r, "start_to"); err != nil {
		return f, err
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			return f, err
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if f.Offset, err = strconv.Atoi(raw); err != nil {
			return f, err
		}
	}
	return f, nil
}

// writeDomainError maps domain errors onto HTTP statuses. Transition
// errors keep their message so clients see the current status.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validationErr *pto.ValidationError
	var transitionErr *pto.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error(), nil)
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusBadRequest, transitionErr.Error(), nil)
	case errors.Is(err, pto.ErrValidation):
		writeError(w, http.StatusBadRequest, fallback, err)
	case errors.Is(err, pto.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", nil)
	default:
		h.Log.Error(r.Context(), fallback, err)
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
