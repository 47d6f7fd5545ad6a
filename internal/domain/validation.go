package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNameLength        = 255
	MaxReferenceLength   = 140
	MaxShortCodeLength   = 32
	MaxDateToleranceDays = 366
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"KES": true, "UGX": true, "TZS": true, "RWF": true,
	"NGN": true, "GHS": true, "ZAR": true, "INR": true,
	"BRL": true, "MXN": true, "SGD": true, "HKD": true,
}

var (
	accountNumberRegex = regexp.MustCompile(`^[A-Za-z0-9-]{4,34}$`)
	shortCodeRegex     = regexp.MustCompile(`^[A-Za-z0-9*#]{1,32}$`)
)

// ValidateName rejects empty or oversized names.
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Invalid("%s cannot be empty", field)
	}
	if len(name) > MaxNameLength {
		return Invalid("%s exceeds %d characters", field, MaxNameLength)
	}
	return nil
}

// ValidateCurrency validates currency code
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !validCurrencies[currency] {
		return Invalid("%s is not a supported ISO 4217 currency code", currency)
	}
	return nil
}

// ValidateAccountNumber validates the bank account number format.
func ValidateAccountNumber(number string) error {
	if !accountNumberRegex.MatchString(strings.TrimSpace(number)) {
		return Invalid("account number %q must be 4-34 letters, digits or dashes", number)
	}
	return nil
}

// ValidateShortCode validates a mobile-money short code or till number.
func ValidateShortCode(code string) error {
	if !shortCodeRegex.MatchString(code) {
		return Invalid("short code %q is malformed", code)
	}
	return nil
}

// ValidateBankAccount checks a new account before it is persisted.
func ValidateBankAccount(a *BankAccount) error {
	if err := ValidateName("bank name", a.BankName); err != nil {
		return err
	}
	if err := ValidateName("account name", a.AccountName); err != nil {
		return err
	}
	if err := ValidateAccountNumber(a.AccountNumber); err != nil {
		return err
	}
	return ValidateCurrency(a.Currency)
}

// ValidateTransaction checks a bank transaction before it is persisted.
func ValidateTransaction(t *BankTransaction) error {
	if !t.Type.IsValid() {
		return Invalid("unknown transaction type %q", t.Type)
	}
	if t.Amount.IsZero() {
		return Invalid("transaction amount cannot be zero")
	}
	if t.Date.IsZero() {
		return Invalid("transaction date is required")
	}
	if len(t.Reference) > MaxReferenceLength {
		return Invalid("reference exceeds %d characters", MaxReferenceLength)
	}
	return nil
}

// ValidateRule checks a matching rule's name and tolerances.
func ValidateRule(r *MatchingRule) error {
	if err := ValidateName("rule name", r.Name); err != nil {
		return err
	}
	if r.AmountTolerance.IsNegative() {
		return Invalid("amount tolerance cannot be negative")
	}
	if r.DateToleranceDays < 0 || r.DateToleranceDays > MaxDateToleranceDays {
		return Invalid("date tolerance must be between 0 and %d days", MaxDateToleranceDays)
	}
	if r.ReferenceSimilarity < 0 || r.ReferenceSimilarity > 1 {
		return Invalid("reference similarity threshold must be between 0 and 1")
	}
	if r.MinConfidence < 0 || r.MinConfidence > MaxConfidence {
		return Invalid("minimum confidence must be between 0 and %.0f", MaxConfidence)
	}
	if !r.Status.IsValid() {
		return Invalid("unknown rule status %q", r.Status)
	}
	return nil
}

// ValidatePeriod checks a statement period.
func ValidatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return Invalid("period start and end are required")
	}
	if DateOnly(start).After(DateOnly(end)) {
		return Invalid("period start is after period end")
	}
	return nil
}

// ValidateDiscrepancyAmount rejects negative discrepancy amounts.
func ValidateDiscrepancyAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Invalid("discrepancy amount cannot be negative")
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
