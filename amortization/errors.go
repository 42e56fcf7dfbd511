/*
errors.go - Error types for the amortization engine

PURPOSE:
  Every failure the engine can produce is a configuration-level fault. There
  are no transient errors and the engine never retries. No partial schedule is
  returned alongside an error.

ERROR CATEGORIES:
  1. ErrInvalidConfiguration - Bad or unsupported input (frequency, day count,
     missing rate, negative derived index rate)
  2. ErrNonConvergence - Insurance-inclusive payment sizing did not settle
  3. ErrNegativeAmortization - A payment does not cover interest + insurance

USAGE:
  _, err := amortization.ComputeAmortization(cfg)
  if errors.Is(err, amortization.ErrNegativeAmortization) {
      var nae *amortization.NegativeAmortizationError
      errors.As(err, &nae) // nae.PaymentNumber, nae.Payment, ...
  }
*/
package amortization

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfiguration is returned when the loan configuration cannot
	// be priced as given.
	ErrInvalidConfiguration = errors.New("invalid loan configuration")

	// ErrNonConvergence is returned when insurance-inclusive payment sizing
	// exhausts its iteration budget.
	ErrNonConvergence = errors.New("failed to converge on payment amount with insurance")

	// ErrNegativeAmortization is returned when a scheduled payment would not
	// reduce the balance.
	ErrNegativeAmortization = errors.New("negative amortization is not allowed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid loan configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NonConvergenceError reports the last candidate payment when sizing gave up.
type NonConvergenceError struct {
	Iterations  int
	LastPayment decimal.Decimal
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("failed to converge on payment amount with insurance after %d iterations (last candidate %s)",
		e.Iterations, e.LastPayment.StringFixed(2))
}

func (e *NonConvergenceError) Unwrap() error {
	return ErrNonConvergence
}

// NegativeAmortizationError describes the period whose payment fell short.
type NegativeAmortizationError struct {
	PaymentNumber int
	Payment       decimal.Decimal
	Interest      decimal.Decimal
	Insurance     decimal.Decimal
}

func (e *NegativeAmortizationError) Error() string {
	return fmt.Sprintf("payment amount %s is insufficient to cover interest %s and fees %s on payment number %d: negative amortization is not allowed",
		e.Payment.StringFixed(2), e.Interest.StringFixed(2), e.Insurance.StringFixed(2), e.PaymentNumber)
}

func (e *NegativeAmortizationError) Unwrap() error {
	return ErrNegativeAmortization
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the loan configuration.
// All engine errors are; anything else (I/O in adapters) is not.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrNonConvergence) ||
		errors.Is(err, ErrNegativeAmortization)
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, ErrNonConvergence):
		return "non_convergence"
	case errors.Is(err, ErrNegativeAmortization):
		return "negative_amortization"
	default:
		return "internal"
	}
}
