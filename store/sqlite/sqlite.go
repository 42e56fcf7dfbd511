/*
Package sqlite provides a SQLite-backed calculation history.

PURPOSE:
  Every successful calculation is recorded with the request that produced it
  and the full response body, so a client can list recent runs and fetch any
  of them again without recomputing.

KEY TABLES:
  calculations: One row per calculation (append-only)

INDEXES:
  - idx_calculations_created_at: Recent-first listing (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of database/sql.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block the
  single writer.

USAGE:
  store, err := sqlite.New("./data/loans.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  rec, err := store.SaveCalculation(ctx, sqlite.CalculationRecord{...})

SEE ALSO:
  - api/handlers.go: Writes a record after each calculation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a calculation ID does not exist.
var ErrNotFound = errors.New("calculation not found")

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultListLimit caps ListCalculations when the caller passes no limit.
const DefaultListLimit = 50

// Store persists calculation records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		loan_amount TEXT NOT NULL,
		payment_frequency TEXT NOT NULL,
		loan_term INTEGER NOT NULL,
		adjustable INTEGER NOT NULL DEFAULT 0,
		payment_amount TEXT NOT NULL,
		total_interest TEXT NOT NULL,
		total_payment TEXT NOT NULL,
		actual_loan_term INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		request_json TEXT NOT NULL,
		response_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_created_at
		ON calculations(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_calculations_fingerprint
		ON calculations(fingerprint);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALCULATION STORE
// =============================================================================

// CalculationRecord is one stored calculation. The summary columns are
// duplicated out of ResponseJSON so listings don't have to decode it.
type CalculationRecord struct {
	ID               string
	LoanAmount       decimal.Decimal
	PaymentFrequency string
	LoanTerm         int
	Adjustable       bool
	PaymentAmount    decimal.Decimal
	TotalInterest    decimal.Decimal
	TotalPayment     decimal.Decimal
	ActualLoanTerm   int
	Fingerprint      string
	RequestJSON      json.RawMessage
	ResponseJSON     json.RawMessage
	CreatedAt        time.Time
}

// SaveCalculation inserts rec and returns it with ID and CreatedAt filled in.
// A caller-supplied ID is kept.
func (s *Store) SaveCalculation(ctx context.Context, rec CalculationRecord) (*CalculationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO calculations
		(id, loan_amount, payment_frequency, loan_term, adjustable, payment_amount,
		 total_interest, total_payment, actual_loan_term, fingerprint,
		 request_json, response_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.LoanAmount.String(),
		rec.PaymentFrequency,
		rec.LoanTerm,
		rec.Adjustable,
		rec.PaymentAmount.String(),
		rec.TotalInterest.String(),
		rec.TotalPayment.String(),
		rec.ActualLoanTerm,
		rec.Fingerprint,
		string(rec.RequestJSON),
		string(rec.ResponseJSON),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save calculation: %w", err)
	}
	return &rec, nil
}

// GetCalculation retrieves a calculation by ID. It returns ErrNotFound when
// no such record exists.
func (s *Store) GetCalculation(ctx context.Context, id string) (*CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectCalculation+" WHERE id = ?", id)
	rec, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation %s: %w", id, err)
	}
	return rec, nil
}

// FindByFingerprint returns the most recent calculation with the given
// request fingerprint, or ErrNotFound.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		selectCalculation+" WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1", fingerprint)
	rec, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation by fingerprint: %w", err)
	}
	return rec, nil
}

// ListCalculations returns the most recent calculations first. ResponseJSON is
// left empty; fetch a single record for the full schedule.
func (s *Store) ListCalculations(ctx context.Context, limit int) ([]CalculationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_amount, payment_frequency, loan_term, adjustable, payment_amount,
		       total_interest, total_payment, actual_loan_term, fingerprint,
		       request_json, '', created_at
		FROM calculations
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	defer rows.Close()

	var records []CalculationRecord
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CountCalculations returns how many calculations are stored.
func (s *Store) CountCalculations(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calculations").Scan(&n)
	return n, err
}

// PruneBefore deletes calculations created before cutoff and returns how
// many were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM calculations WHERE created_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune calculations: %w", err)
	}
	return res.RowsAffected()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM calculations")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

const selectCalculation = `
	SELECT id, loan_amount, payment_frequency, loan_term, adjustable, payment_amount,
	       total_interest, total_payment, actual_loan_term, fingerprint,
	       request_json, response_json, created_at
	FROM calculations`

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (*CalculationRecord, error) {
	var rec CalculationRecord
	var loanAmount, payment, interest, total string
	var request, response, createdAt string

	err := row.Scan(
		&rec.ID, &loanAmount, &rec.PaymentFrequency, &rec.LoanTerm, &rec.Adjustable, &payment,
		&interest, &total, &rec.ActualLoanTerm, &rec.Fingerprint,
		&request, &response, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.LoanAmount = parseDecimal(loanAmount)
	rec.PaymentAmount = parseDecimal(payment)
	rec.TotalInterest = parseDecimal(interest)
	rec.TotalPayment = parseDecimal(total)
	rec.RequestJSON = json.RawMessage(request)
	if response != "" {
		rec.ResponseJSON = json.RawMessage(response)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &rec, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
