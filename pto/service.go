/*
service.go - Request lifecycle manager and balance/holiday query surface

PURPOSE:
  The operations the API layer exposes, implemented over a storage
  interface. Cancel and Approve are read-check-write sequences and run
  inside a single store transaction: two concurrent transitions on the same
  request cannot both succeed - the second observes the updated status and
  fails with InvalidTransitionError.

OPERATIONS:
  Balance        Sum of the employee's ledger
  CreateRequest  New request in state "pending"
  ListRequests   Owned requests, filtered, start_date DESC, paginated
  GetRequest     Single owned request (ownership hiding)
  CancelRequest  pending -> cancelled, by the owner, no ledger effect
  Approve        pending -> approved + usage ledger entry, atomically
  Reject         pending -> rejected, no ledger effect
  Holidays       Reference calendar, date-range filtered

SEE ALSO:
  - store/sqlite/sqlite.go: Store implementation, WithTx semantics
  - calendar/business.go: BusinessHours used to size usage entries
*/
package pto

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pto-service/calendar"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the persistence surface the service needs. Implemented by
// store/sqlite.
type Store interface {
	GetEmployee(ctx context.Context, id int64) (*Employee, error)

	// AppendLedgerEntry adds an immutable ledger fact. There is no update
	// or delete counterpart.
	AppendLedgerEntry(ctx context.Context, e LedgerEntry) (*LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, employeeID int64) ([]LedgerEntry, error)

	InsertRequest(ctx context.Context, r Request) (*Request, error)
	GetRequest(ctx context.Context, requestID int64) (*Request, error)
	ListRequests(ctx context.Context, employeeID int64, f ListFilter) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, requestID int64, status Status, updatedAt time.Time) (*Request, error)

	ListHolidays(ctx context.Context, from, to *time.Time) ([]Holiday, error)

	// WithTx runs fn inside one store transaction. If fn returns an error
	// (or the context is cancelled) every write made through the
	// transactional store is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service implements the PTO operations over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a Service backed by the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance returns the employee's available hours: the exact sum of
// change_hours over all their ledger entries. An employee with no entries
// has a zero balance.
func (s *Service) Balance(ctx context.Context, employeeID int64) (decimal.Decimal, error) {
	entries, err := s.store.ListLedgerEntries(ctx, employeeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading ledger for employee %d: %w", employeeID, err)
	}
	return SumChangeHours(entries), nil
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// CreateRequest submits a new PTO request in state pending. The range is
// inclusive; an end date before the start date is rejected before any row
// is written, as is an unknown employee. No ledger effect until approval.
func (s *Service) CreateRequest(ctx context.Context, employeeID int64, start, end time.Time, notes string) (*Request, error) {
	if end.Before(start) {
		return nil, &ValidationError{Field: "end_date", Reason: "end date cannot be before start date"}
	}

	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("loading employee %d: %w", employeeID, err)
	}
	if emp == nil {
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	req := Request{
		EmployeeID:  employeeID,
		StartDate:   start,
		EndDate:     end,
		Status:      StatusPending,
		RequestedAt: now,
		Notes:       notes,
	}

	created, err := s.store.InsertRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return created, nil
}

// ListRequests returns the employee's requests matching the filter,
// ordered by start_date descending.
func (s *Service) ListRequests(ctx context.Context, employeeID int64, f ListFilter) ([]Request, error) {
	reqs, err := s.store.ListRequests(ctx, employeeID, f.Normalize())
	if err != nil {
		return nil, fmt.Errorf("listing requests for employee %d: %w", employeeID, err)
	}
	return reqs, nil
}

// GetRequest returns the request only if it exists and belongs to the
// employee; otherwise ErrNotFound.
func (s *Service) GetRequest(ctx context.Context, employeeID, requestID int64) (*Request, error) {
	return fetchOwned(ctx, s.store, employeeID, requestID)
}

// fetchOwned is the single lookup-and-authorize step. A missing request
// and a request owned by someone else return the same error, so callers
// cannot leak existence.
func fetchOwned(ctx context.Context, store Store, employeeID, requestID int64) (*Request, error) {
	req, err := store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading request %d: %w", requestID, err)
	}
	if req == nil || req.EmployeeID != employeeID {
		return nil, ErrNotFound
	}
	return req, nil
}

// CancelRequest transitions an owned, still-pending request to cancelled.
// The ownership check and the status precondition run inside one store
// transaction so a concurrent approve or cancel cannot interleave.
// Cancellation posts no ledger entry: a pending request never accrued
// usage.
func (s *Service) CancelRequest(ctx context.Context, employeeID, requestID int64) (*Request, error) {
	var updated *Request
	err := s.store.WithTx(ctx, func(tx Store) error {
		req, err := fetchOwned(ctx, tx, employeeID, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &InvalidTransitionError{RequestID: requestID, Current: req.Status, Attempted: StatusCancelled}
		}

		updated, err = tx.UpdateRequestStatus(ctx, requestID, StatusCancelled, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Approve transitions a pending request to approved and, in the same
// transaction, appends the usage ledger entry: -BusinessHours over the
// request's range, dated at the start date, referencing the request. Both
// writes commit together or neither does. The approver is an out-of-band
// process, so no ownership check applies here.
func (s *Service) Approve(ctx context.Context, requestID int64) (*Request, error) {
	var updated *Request
	err := s.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("loading request %d: %w", requestID, err)
		}
		if req == nil {
			return ErrNotFound
		}
		if req.Status != StatusPending {
			return &InvalidTransitionError{RequestID: requestID, Current: req.Status, Attempted: StatusApproved}
		}

		hours, err := s.businessHours(ctx, tx, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}

		if hours.IsPositive() {
			entry := LedgerEntry{
				EmployeeID:      req.EmployeeID,
				TransactionDate: req.StartDate,
				ChangeHours:     hours.Neg(),
				Type:            EntryUsage,
				Description: fmt.Sprintf("PTO Used: %s to %s",
					req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02")),
				RelatedRequestID: &req.ID,
			}
			if _, err := tx.AppendLedgerEntry(ctx, entry); err != nil {
				return fmt.Errorf("posting usage entry for request %d: %w", requestID, err)
			}
		}

		updated, err = tx.UpdateRequestStatus(ctx, requestID, StatusApproved, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reject transitions a pending request to rejected. No ledger effect.
func (s *Service) Reject(ctx context.Context, requestID int64) (*Request, error) {
	var updated *Request
	err := s.store.WithTx(ctx, func(tx Store) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return fmt.Errorf("loading request %d: %w", requestID, err)
		}
		if req == nil {
			return ErrNotFound
		}
		if req.Status != StatusPending {
			return &InvalidTransitionError{RequestID: requestID, Current: req.Status, Attempted: StatusRejected}
		}

		updated, err = tx.UpdateRequestStatus(ctx, requestID, StatusRejected, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// businessHours loads the holidays overlapping the request's years and
// computes the working hours of the inclusive range.
func (s *Service) businessHours(ctx context.Context, store Store, start, end time.Time) (decimal.Decimal, error) {
	from := time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)

	holidays, err := store.ListHolidays(ctx, &from, &to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading holidays: %w", err)
	}

	set := calendar.NewDateSet()
	for _, h := range holidays {
		set.Add(h.Date)
	}
	return calendar.BusinessHours(start, end, set), nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holidays returns the shared holiday calendar ordered by date, optionally
// bounded to an inclusive range.
func (s *Service) Holidays(ctx context.Context, from, to *time.Time) ([]Holiday, error) {
	holidays, err := s.store.ListHolidays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing holidays: %w", err)
	}
	return holidays, nil
}
