/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags; handlers run
  the shared validator instance before touching domain logic.

DATE FORMATS:
  Calendar dates are "2006-01-02" strings; timestamps are RFC3339.
  Hour quantities are exact decimal strings, never floats.

SEE ALSO:
  - handlers.go: Uses these types
  - pto/types.go: The domain model these map from
*/
package api

import (
	"time"

	"github.com/warp/pto-service/pto"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BalanceDTO is the response for a balance lookup.
type BalanceDTO struct {
	EmployeeID     int64  `json:"employee_id"`
	AvailableHours string `json:"available_hours"`
}

// CreateRequestDTO is the request body for submitting time off.
type CreateRequestDTO struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Notes     string `json:"notes" validate:"omitempty,max=2000"`
}

// RequestDTO represents a time-off request in API responses.
type RequestDTO struct {
	RequestID   int64  `json:"request_id"`
	EmployeeID  int64  `json:"employee_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	Notes       string `json:"notes,omitempty"`
}

// HolidayDTO represents a company holiday in API responses.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

const dayFormat = "2006-01-02"

func toRequestDTO(r pto.Request) RequestDTO {
	return RequestDTO{
		RequestID:   r.ID,
		EmployeeID:  r.EmployeeID,
		StartDate:   r.StartDate.Format(dayFormat),
		EndDate:     r.EndDate.Format(dayFormat),
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt.Format(time.RFC3339),
		Notes:       r.Notes,
	}
}

func toRequestDTOs(requests []pto.Request) []RequestDTO {
	dtos := make([]RequestDTO, 0, len(requests))
	for _, r := range requests {
		dtos = append(dtos, toRequestDTO(r))
	}
	return dtos
}

func toHolidayDTOs(holidays []pto.Holiday) []HolidayDTO {
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, h := range holidays {
		dtos = append(dtos, HolidayDTO{
			Date: h.Date.Format(dayFormat),
			Name: h.Name,
		})
	}
	return dtos
}
