/*
main.go - Database seeder

PURPOSE:
  Populates a database with realistic demo data: the federal holiday
  calendar, a workforce of fake employees, their allowance and accrual
  ledger history, and a spread of time-off requests in every lifecycle
  state.

WHAT IT GENERATES:
  1. Federal holidays for a range of years (default 2015-2028)
  2. Employees with faker names/emails, hire dates and allowances
  3. Initial allowance ledger entry dated the day after hire
  4. Annual accrual entries (120h) on Jan 1 of each year after hire
  5. 0..N requests per employee; approvals go through the domain
     service so usage hours are posted exactly as in production

REPRODUCIBILITY:
  -seed fixes the random source, so the same flags regenerate the same
  dataset.

USAGE:
  ./seed -db=./data/pto.db
  ./seed -db=./data/pto.db -employees=250 -seed=42

SEE ALSO:
  - calendar/holidays.go: Federal holiday rules
  - pto/service.go: Approval path used for approved requests
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/warp/pto-service/calendar"
	"github.com/warp/pto-service/logger"
	"github.com/warp/pto-service/pto"
	"github.com/warp/pto-service/store/sqlite"
)

const (
	annualAccrualHours = 120
	accrualDescription = "Annual accrual for %d"
	initialDescription = "Initial PTO allowance upon hiring"
)

func main() {
	dbPath := flag.String("db", "./data/pto.db", "SQLite database path")
	numEmployees := flag.Int("employees", 100, "number of employees to create")
	fromYear := flag.Int("from-year", 2015, "first holiday year")
	toYear := flag.Int("to-year", 2028, "last holiday year")
	maxRequests := flag.Int("max-requests", 5, "max requests per employee")
	seed := flag.Int64("seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	log := logger.New(logger.Options{ServiceName: "pto-seed", Format: "console"})
	ctx := context.Background()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))
	faker := gofakeit.New(uint64(*seed))

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error(ctx, "failed to open database", err)
		os.Exit(1)
	}
	defer store.Close()

	service := pto.NewService(store)
	now := time.Now().UTC()

	// Holidays first: the approval path needs them to count business days.
	holidayCount := 0
	for year := *fromYear; year <= *toYear; year++ {
		for _, h := range calendar.FederalHolidays(year) {
			if err := store.InsertHoliday(ctx, pto.Holiday{Date: h.Date, Name: h.Name}); err != nil {
				log.Error(ctx, "failed to insert holiday", err)
				os.Exit(1)
			}
			holidayCount++
		}
	}
	log.Info(log.WithField(ctx, "count", holidayCount), "holidays seeded")

	for i := 0; i < *numEmployees; i++ {
		if err := seedEmployee(ctx, store, rng, faker, i, now); err != nil {
			log.Error(ctx, "failed to seed employee", err)
			os.Exit(1)
		}
	}
	log.Info(log.WithField(ctx, "count", *numEmployees), "employees seeded")

	if err := seedRequests(ctx, store, service, rng, *maxRequests, now, log); err != nil {
		log.Error(ctx, "failed to seed requests", err)
		os.Exit(1)
	}
	log.Info(ctx, "done")
}

func seedEmployee(ctx context.Context, store *sqlite.Store, rng *rand.Rand, faker *gofakeit.Faker, idx int, now time.Time) error {
	firstName := faker.FirstName()
	lastName := faker.LastName()

	// Hired somewhere in the last ten years, at least a year ago
	daysAgo := 365 + rng.Intn(9*365)
	hireDate := midnight(now.AddDate(0, 0, -daysAgo))

	allowance := decimal.NewFromInt(int64(80 + rng.Intn(81))) // 80..160 hours

	emp, err := store.InsertEmployee(ctx, pto.Employee{
		FirstName:        firstName,
		LastName:         lastName,
		Email:            fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(firstName), strings.ToLower(lastName), idx+1),
		HireDate:         hireDate,
		InitialAllowance: allowance,
		Active:           rng.Float64() < 0.8,
	})
	if err != nil {
		return err
	}

	// Initial allowance lands the day after hire
	if _, err := store.AppendLedgerEntry(ctx, pto.LedgerEntry{
		EmployeeID:      emp.ID,
		TransactionDate: hireDate.AddDate(0, 0, 1),
		ChangeHours:     allowance,
		Type:            pto.EntryInitial,
		Description:     initialDescription,
	}); err != nil {
		return err
	}

	// Annual accruals every Jan 1 after the hire year
	for year := hireDate.Year() + 1; year <= now.Year(); year++ {
		if _, err := store.AppendLedgerEntry(ctx, pto.LedgerEntry{
			EmployeeID:      emp.ID,
			TransactionDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			ChangeHours:     decimal.NewFromInt(annualAccrualHours),
			Type:            pto.EntryAccrual,
			Description:     fmt.Sprintf(accrualDescription, year),
		}); err != nil {
			return err
		}
	}
	return nil
}

// seedRequests generates 0..max requests per employee and walks each one
// through its lifecycle via the domain service, so approved requests post
// usage entries the same way the API does.
func seedRequests(ctx context.Context, store *sqlite.Store, service *pto.Service, rng *rand.Rand, max int, now time.Time, log *logger.Logger) error {
	employees, err := store.ListEmployees(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, emp := range employees {
		n := rng.Intn(max + 1)
		for i := 0; i < n; i++ {
			// Start within the last two years or the next six months
			offset := rng.Intn(2*365+180) - 2*365
			start := midnight(now.AddDate(0, 0, offset))
			end := start.AddDate(0, 0, rng.Intn(10))

			req, err := service.CreateRequest(ctx, emp.ID, start, end, "")
			if err != nil {
				return err
			}
			total++

			switch pick := rng.Float64(); {
			case pick < 0.60:
				_, err = service.Approve(ctx, req.ID)
			case pick < 0.80:
				// stays pending
			case pick < 0.90:
				_, err = service.Reject(ctx, req.ID)
			default:
				_, err = service.CancelRequest(ctx, emp.ID, req.ID)
			}
			if err != nil {
				return err
			}
		}
	}
	log.Info(log.WithField(ctx, "count", total), "requests seeded")
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
