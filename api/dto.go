/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract, which front ends
  already depend on.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Calculation:
    factory.LoanJSON (request), AnalysisResponse, ScheduleRowDTO

  History:
    CalculationSummaryDTO, CalculationDTO

  Export:
    export.Report (request)

NUMBERS:
  The engine computes in decimal. Responses carry JSON numbers, converted
  only at this boundary; every amount is already exact to the cent.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/loan.go: LoanJSON request type
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/loan-engine/amortization"
	"github.com/warp/loan-engine/factory"
	"github.com/warp/loan-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AnalysisResponse is returned by the calculate endpoints.
type AnalysisResponse struct {
	ID                       string  `json:"id,omitempty"`
	PaymentAmount            float64 `json:"payment_amount"`
	AdditionalPrincipal      float64 `json:"additional_principal"`
	PaymentAmountNoInsurance float64 `json:"payment_amount_no_insurance"`
	PaymentIncrease          float64 `json:"payment_increase"`

	// InsurancePremiumPerPayment is always null: the premium varies every
	// period. Kept for clients that read it.
	InsurancePremiumPerPayment *float64 `json:"insurance_premium_per_payment"`

	TotalInterest            float64          `json:"total_interest"`
	TotalInsurance           float64          `json:"total_insurance"`
	TotalAdditionalPrincipal float64          `json:"total_additional_principal"`
	TotalPayment             float64          `json:"total_payment"`
	ActualLoanTerm           int              `json:"actual_loan_term"`
	InterestSavings          float64          `json:"interest_savings"`
	AmortizationSchedule     []ScheduleRowDTO `json:"amortization_schedule"`

	// SavingsUnavailable marks a loan that only amortizes because of the
	// additional principal; interest_savings is 0 then.
	SavingsUnavailable bool `json:"savings_unavailable,omitempty"`
}

// ScheduleRowDTO is one payment in a response.
type ScheduleRowDTO struct {
	PaymentNumber       int     `json:"payment_number"`
	PaymentDate         string  `json:"payment_date"`
	PaymentAmount       float64 `json:"payment_amount"`
	PrincipalPaid       float64 `json:"principal_paid"`
	InterestPaid        float64 `json:"interest_paid"`
	AdditionalPrincipal float64 `json:"additional_principal"`
	InsurancePaid       float64 `json:"insurance_paid"`
	EndingBalance       float64 `json:"ending_balance"`
	InterestRate        float64 `json:"interest_rate"`
}

// CalculationSummaryDTO is one entry in the history listing.
type CalculationSummaryDTO struct {
	ID               string  `json:"id"`
	LoanAmount       float64 `json:"loan_amount"`
	PaymentFrequency string  `json:"payment_frequency"`
	LoanTerm         int     `json:"loan_term"`
	Adjustable       bool    `json:"adjustable"`
	PaymentAmount    float64 `json:"payment_amount"`
	TotalInterest    float64 `json:"total_interest"`
	TotalPayment     float64 `json:"total_payment"`
	ActualLoanTerm   int     `json:"actual_loan_term"`
	CreatedAt        string  `json:"created_at"`
}

// CalculationDTO is a stored calculation with its request and result.
type CalculationDTO struct {
	CalculationSummaryDTO
	Request json.RawMessage `json:"request"`
	Result  json.RawMessage `json:"result"`
}

// ListCalculationsResponse wraps the history listing.
type ListCalculationsResponse struct {
	Calculations []CalculationSummaryDTO `json:"calculations"`
	Total        int                     `json:"total"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAnalysisResponse(cfg amortization.LoanConfig, a *amortization.Analysis) AnalysisResponse {
	resp := AnalysisResponse{
		PaymentAmount:            money(a.Summary.PaymentAmount),
		AdditionalPrincipal:      money(amortization.RoundHalfUp(cfg.AdditionalPrincipal)),
		PaymentAmountNoInsurance: money(a.Summary.PaymentAmountNoInsurance),
		PaymentIncrease:          money(a.PaymentIncrease),
		TotalInterest:            money(a.Summary.TotalInterest),
		TotalInsurance:           money(a.Summary.TotalInsurance),
		TotalAdditionalPrincipal: money(a.Summary.TotalAdditionalPrincipal),
		TotalPayment:             money(a.Summary.TotalPayment),
		ActualLoanTerm:           a.Summary.ActualLoanTerm,
		InterestSavings:          money(a.InterestSavings),
		SavingsUnavailable:       a.SavingsUnavailable,
		AmortizationSchedule:     make([]ScheduleRowDTO, 0, len(a.Schedule)),
	}
	for _, row := range a.Schedule {
		resp.AmortizationSchedule = append(resp.AmortizationSchedule, ScheduleRowDTO{
			PaymentNumber:       row.PaymentNumber,
			PaymentDate:         row.PaymentDate.Format(factory.DateLayout),
			PaymentAmount:       money(row.PaymentAmount),
			PrincipalPaid:       money(row.PrincipalPaid),
			InterestPaid:        money(row.Interest),
			AdditionalPrincipal: money(row.AdditionalPrincipal),
			InsurancePaid:       money(row.Insurance),
			EndingBalance:       money(row.EndingBalance),
			InterestRate:        row.InterestRate.InexactFloat64(),
		})
	}
	return resp
}

func toCalculationSummaryDTO(rec sqlite.CalculationRecord) CalculationSummaryDTO {
	return CalculationSummaryDTO{
		ID:               rec.ID,
		LoanAmount:       money(rec.LoanAmount),
		PaymentFrequency: rec.PaymentFrequency,
		LoanTerm:         rec.LoanTerm,
		Adjustable:       rec.Adjustable,
		PaymentAmount:    money(rec.PaymentAmount),
		TotalInterest:    money(rec.TotalInterest),
		TotalPayment:     money(rec.TotalPayment),
		ActualLoanTerm:   rec.ActualLoanTerm,
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
	}
}

// money converts a cent-exact amount to a JSON number.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
