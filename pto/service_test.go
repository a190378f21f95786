package pto_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pto-service/pto"
	"github.com/warp/pto-service/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*pto.Service, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return pto.NewService(store), store
}

func newEmployee(t *testing.T, store *sqlite.Store, email string) *pto.Employee {
	emp, err := store.InsertEmployee(context.Background(), pto.Employee{
		FirstName:        "Alex",
		LastName:         "Rivera",
		Email:            email,
		HireDate:         day(2020, time.March, 2),
		InitialAllowance: decimal.NewFromInt(104),
		Active:           true,
	})
	require.NoError(t, err)
	return emp
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func appendEntry(t *testing.T, store *sqlite.Store, employeeID int64, date time.Time, hours int64, typ pto.EntryType) {
	_, err := store.AppendLedgerEntry(context.Background(), pto.LedgerEntry{
		EmployeeID:      employeeID,
		TransactionDate: date,
		ChangeHours:     decimal.NewFromInt(hours),
		Type:            typ,
	})
	require.NoError(t, err)
}

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestBalance_EmptyLedger_IsZero(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")

	balance, err := svc.Balance(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "got %s", balance)
}

func TestBalance_IsSumOfChangeHours(t *testing.T) {
	// GIVEN: initial allowance, an accrual, and a usage entry
	// THEN: balance is their exact signed sum

	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")

	appendEntry(t, store, emp.ID, day(2020, time.March, 3), 104, pto.EntryInitial)
	appendEntry(t, store, emp.ID, day(2021, time.January, 1), 120, pto.EntryAccrual)
	appendEntry(t, store, emp.ID, day(2021, time.June, 7), -24, pto.EntryUsage)

	balance, err := svc.Balance(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(200)), "got %s", balance)
}

func TestBalance_IgnoresOtherEmployees(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	other := newEmployee(t, store, "sam@example.com")

	appendEntry(t, store, other.ID, day(2021, time.January, 1), 120, pto.EntryAccrual)

	balance, err := svc.Balance(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

// =============================================================================
// CREATE / GET / LIST TESTS
// =============================================================================

func TestCreateRequest_StartsPending(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")

	req, err := svc.CreateRequest(context.Background(),
		emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "vacation")
	require.NoError(t, err)

	assert.Equal(t, pto.StatusPending, req.Status)
	assert.Equal(t, emp.ID, req.EmployeeID)
	assert.False(t, req.RequestedAt.IsZero())
	assert.Equal(t, "vacation", req.Notes)

	// No ledger effect before approval
	balance, err := svc.Balance(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCreateRequest_InvertedRange_Rejected(t *testing.T) {
	// GIVEN: end date before start date
	// THEN: validation error, and nothing persisted

	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 6), day(2025, time.June, 2), "")
	require.Error(t, err)

	var vErr *pto.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, pto.ErrValidation)

	requests, err := svc.ListRequests(ctx, emp.ID, pto.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestCreateRequest_UnknownEmployee_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRequest(context.Background(),
		77, day(2025, time.June, 2), day(2025, time.June, 6), "")
	assert.ErrorIs(t, err, pto.ErrNotFound)
}

func TestCreateRequest_SingleDayAllowed(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")

	req, err := svc.CreateRequest(context.Background(),
		emp.ID, day(2025, time.June, 2), day(2025, time.June, 2), "")
	require.NoError(t, err)
	assert.Equal(t, pto.StatusPending, req.Status)
}

func TestGetRequest_NotOwned_SameAsMissing(t *testing.T) {
	// A request owned by someone else must be indistinguishable from a
	// request that does not exist.

	svc, store := newTestService(t)
	owner := newEmployee(t, store, "alex@example.com")
	intruder := newEmployee(t, store, "sam@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, owner.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	_, errNotOwned := svc.GetRequest(ctx, intruder.ID, req.ID)
	_, errMissing := svc.GetRequest(ctx, intruder.ID, 99999)

	assert.ErrorIs(t, errNotOwned, pto.ErrNotFound)
	assert.ErrorIs(t, errMissing, pto.ErrNotFound)
	assert.Equal(t, errNotOwned, errMissing)
}

func TestListRequests_NewestStartDateFirst(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	for _, start := range []time.Time{
		day(2025, time.March, 10),
		day(2025, time.July, 21),
		day(2025, time.May, 5),
	} {
		_, err := svc.CreateRequest(ctx, emp.ID, start, start.AddDate(0, 0, 2), "")
		require.NoError(t, err)
	}

	requests, err := svc.ListRequests(ctx, emp.ID, pto.ListFilter{})
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, day(2025, time.July, 21), requests[0].StartDate)
	assert.Equal(t, day(2025, time.May, 5), requests[1].StartDate)
	assert.Equal(t, day(2025, time.March, 10), requests[2].StartDate)
}

func TestListRequests_FilterAndPagination(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		start := day(2025, time.March, 3).AddDate(0, 0, i*7)
		req, err := svc.CreateRequest(ctx, emp.ID, start, start, "")
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}
	_, err := svc.Reject(ctx, ids[0])
	require.NoError(t, err)

	pending := pto.StatusPending
	requests, err := svc.ListRequests(ctx, emp.ID, pto.ListFilter{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, requests, 4)

	// Page size 2, second page
	requests, err = svc.ListRequests(ctx, emp.ID, pto.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, requests, 2)

	// Out-of-range values are clamped, not errors
	requests, err = svc.ListRequests(ctx, emp.ID, pto.ListFilter{Limit: -10, Offset: -3})
	require.NoError(t, err)
	assert.Len(t, requests, 5)
}

// =============================================================================
// CANCEL TESTS
// =============================================================================

func TestCancelRequest_Pending_Succeeds(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	cancelled, err := svc.CancelRequest(ctx, emp.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pto.StatusCancelled, cancelled.Status)

	// No ledger effect
	balance, err := svc.Balance(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCancelRequest_AlreadyCancelled_ReportsCurrentStatus(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	_, err = svc.CancelRequest(ctx, emp.ID, req.ID)
	require.NoError(t, err)

	_, err = svc.CancelRequest(ctx, emp.ID, req.ID)
	require.Error(t, err)

	var transErr *pto.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, pto.StatusCancelled, transErr.Current)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestCancelRequest_NotOwned_NotFound(t *testing.T) {
	svc, store := newTestService(t)
	owner := newEmployee(t, store, "alex@example.com")
	intruder := newEmployee(t, store, "sam@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, owner.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	_, err = svc.CancelRequest(ctx, intruder.ID, req.ID)
	assert.ErrorIs(t, err, pto.ErrNotFound)

	// Still pending for the owner
	got, err := svc.GetRequest(ctx, owner.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pto.StatusPending, got.Status)
}

// =============================================================================
// APPROVE / REJECT TESTS
// =============================================================================

func TestApprove_PostsUsageEntry(t *testing.T) {
	// GIVEN: Mon Jun 30 - Fri Jul 4 2025 with July 4 a holiday
	// WHEN: The request is approved
	// THEN: exactly one usage entry of -32h dated at the start date

	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	appendEntry(t, store, emp.ID, day(2025, time.January, 1), 120, pto.EntryAccrual)
	require.NoError(t, store.InsertHoliday(ctx, pto.Holiday{
		Date: day(2025, time.July, 4), Name: "Independence Day",
	}))

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 30), day(2025, time.July, 4), "")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pto.StatusApproved, approved.Status)

	entries, err := store.ListLedgerEntries(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	usage := entries[1]
	assert.Equal(t, pto.EntryUsage, usage.Type)
	assert.True(t, usage.ChangeHours.Equal(decimal.NewFromInt(-32)), "got %s", usage.ChangeHours)
	assert.Equal(t, day(2025, time.June, 30), usage.TransactionDate)
	require.NotNil(t, usage.RelatedRequestID)
	assert.Equal(t, req.ID, *usage.RelatedRequestID)
	assert.Contains(t, usage.Description, "2025-06-30")
	assert.Contains(t, usage.Description, "2025-07-04")

	balance, err := svc.Balance(ctx, emp.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(88)), "got %s", balance)
}

func TestApprove_WeekendOnly_NoLedgerEntry(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.March, 8), day(2025, time.March, 9), "")
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pto.StatusApproved, approved.Status)

	entries, err := store.ListLedgerEntries(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApprove_NonPending_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)
	_, err = svc.CancelRequest(ctx, emp.ID, req.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID)
	var transErr *pto.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, pto.StatusCancelled, transErr.Current)

	// The failed approval must not have posted hours
	entries, err := store.ListLedgerEntries(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApprove_Missing_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), 12345)
	assert.ErrorIs(t, err, pto.ErrNotFound)
}

func TestReject_NoLedgerEffect(t *testing.T) {
	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, pto.StatusRejected, rejected.Status)

	entries, err := store.ListLedgerEntries(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestConcurrentCancelAndApprove_ExactlyOneWins(t *testing.T) {
	// Cancel and approve race on the same pending request. The
	// transactional status check must let exactly one through.

	svc, store := newTestService(t)
	emp := newEmployee(t, store, "alex@example.com")
	ctx := context.Background()

	req, err := svc.CreateRequest(ctx, emp.ID, day(2025, time.June, 2), day(2025, time.June, 6), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var cancelErr, approveErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = svc.CancelRequest(ctx, emp.ID, req.ID)
	}()
	go func() {
		defer wg.Done()
		_, approveErr = svc.Approve(ctx, req.ID)
	}()
	wg.Wait()

	wins := 0
	if cancelErr == nil {
		wins++
	}
	if approveErr == nil {
		wins++
	}
	require.Equal(t, 1, wins, "cancel err: %v, approve err: %v", cancelErr, approveErr)

	// The loser observed the winner's status
	var transErr *pto.InvalidTransitionError
	if cancelErr != nil {
		assert.ErrorAs(t, cancelErr, &transErr)
	} else {
		assert.ErrorAs(t, approveErr, &transErr)
	}

	final, err := svc.GetRequest(ctx, emp.ID, req.ID)
	require.NoError(t, err)

	entries, err := store.ListLedgerEntries(ctx, emp.ID)
	require.NoError(t, err)

	if approveErr == nil {
		assert.Equal(t, pto.StatusApproved, final.Status)
		assert.Len(t, entries, 1)
	} else {
		assert.Equal(t, pto.StatusCancelled, final.Status)
		assert.Empty(t, entries)
	}
}
