/*
Package pto implements the paid-time-off accounting core: the append-only
hours ledger and the request lifecycle.

PURPOSE:
  Domain types and the lifecycle service, stateless over a storage
  interface. The two load-bearing pieces are:

  1. Ledger accounting: an employee's available balance is exactly the sum
     of signed change_hours over their ledger entries. Entries are facts;
     they are appended, never mutated or deleted.

  2. Request lifecycle: pending -> approved | rejected | cancelled.
     Approval atomically couples the status flip with a negative usage
     ledger entry sized to the business hours of the request's date range.

DESIGN PRINCIPLES:
  1. Immutability: ledger corrections are new entries, not edits
  2. Precision: decimal.Decimal for hours, never binary floating point
  3. Ownership hiding: a request that exists but belongs to someone else is
     indistinguishable from one that does not exist

SEE ALSO:
  - errors.go: Error taxonomy (validation, not-found, invalid transition)
  - balance.go: Balance calculation
  - service.go: Lifecycle operations
  - store/sqlite: Persistence
*/
package pto

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is provisioned once (seed or onboarding) and immutable within
// this core.
type Employee struct {
	ID               int64
	FirstName        string
	LastName         string
	Email            string
	HireDate         time.Time
	InitialAllowance decimal.Decimal // hours granted at hire
	Active           bool
	CreatedAt        time.Time
}

// =============================================================================
// LEDGER ENTRY - Append-only signed-hours fact
// =============================================================================

type EntryType string

const (
	EntryInitial    EntryType = "initial"    // one-time allowance at/after hire
	EntryAccrual    EntryType = "accrual"    // periodic grant
	EntryUsage      EntryType = "usage"      // negative, tied to an approved request
	EntryAdjustment EntryType = "adjustment" // manual correction
)

// LedgerEntry records a signed change to an employee's PTO balance.
// Positive is credit, negative is debit.
type LedgerEntry struct {
	ID               int64
	EmployeeID       int64
	TransactionDate  time.Time
	ChangeHours      decimal.Decimal
	Type             EntryType
	Description      string
	RelatedRequestID *int64 // set for usage entries
	CreatedAt        time.Time
}

// =============================================================================
// PTO REQUEST - Lifecycle state machine
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions exist from this status.
func (s Status) Terminal() bool { return s != StatusPending }

// Request is an employee's PTO request over an inclusive date range.
type Request struct {
	ID          int64
	EmployeeID  int64
	StartDate   time.Time
	EndDate     time.Time // inclusive, >= StartDate
	Status      Status
	RequestedAt time.Time
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// =============================================================================
// HOLIDAY - Shared reference data
// =============================================================================

type Holiday struct {
	ID   int64
	Date time.Time
	Name string
}

// =============================================================================
// LIST FILTER - Request listing parameters
// =============================================================================

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListFilter narrows and pages a request listing. StartFrom/StartTo bound
// the request start_date (inclusive).
type ListFilter struct {
	Status    *Status
	StartFrom *time.Time
	StartTo   *time.Time
	Limit     int
	Offset    int
}

// Normalize clamps the limit to [1, MaxListLimit] (defaulting when unset)
// and floors the offset at zero.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
