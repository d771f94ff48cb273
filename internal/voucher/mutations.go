package voucher

import (
	"math"    // Non-finite checks on amounts
	"strconv" // Defensive numeric parsing on import
	"strings" // Trimming and case folding
	"time"    // Expiry dates

	"voucher_vault/internal/domain" // Voucher model
)

// DateLayout is the calendar-date encoding used on the API and in the
// interchange sheet. Expiry has no time-of-day component.
const DateLayout = "2006-01-02"

// AddInput carries the fields for creating a voucher
type AddInput struct {
	Name        string     // Required display label
	Value       float64    // Total face value, must be > 0
	InitialUsed float64    // Amount already redeemed, defaults to 0
	Category    string     // Category label, empty defaults to General
	Code        *string    // Optional voucher code
	Pin         *string    // Optional PIN
	ExpiresOn   *time.Time // Optional expiry date
}

// NewVoucher validates in and builds the voucher row to insert. The status
// is computed from the initial redemption, never taken from the caller.
func NewVoucher(owner uint, in AddInput) (domain.Voucher, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Voucher{}, validationf("name is required")
	}
	if !isFinite(in.Value) || in.Value <= 0 {
		return domain.Voucher{}, validationf("value must be a positive number")
	}
	if !isFinite(in.InitialUsed) || in.InitialUsed < 0 {
		return domain.Voucher{}, validationf("initial used amount cannot be negative")
	}
	if in.InitialUsed > in.Value {
		return domain.Voucher{}, validationf("initial used amount cannot exceed value")
	}
	v := domain.Voucher{
		OwnerID:   owner,
		Name:      name,
		Value:     in.Value,
		Spent:     in.InitialUsed,
		Category:  categoryOrDefault(in.Category),
		Code:      in.Code,
		Pin:       in.Pin,
		ExpiresOn: in.ExpiresOn,
		Status:    statusFor(in.InitialUsed, in.Value),
	}
	return v, nil
}

// PartialUse redeems amount against v's remaining balance. The amount must
// be positive and must not exceed value - spent; a fully spent voucher
// therefore rejects every positive amount. On success spent accumulates and
// the status flips to used once the face value is exhausted.
func PartialUse(v *domain.Voucher, amount float64) error {
	if !isFinite(amount) || amount <= 0 {
		return validationf("amount must be a positive number")
	}
	remaining := v.Value - v.Spent
	if amount > remaining {
		return validationf("amount exceeds remaining balance")
	}
	v.Spent += amount
	if v.Spent >= v.Value {
		v.Status = domain.StatusUsed
	}
	return nil
}

// Toggle flips the voucher between its two extremes: an unused voucher
// becomes fully spent, a used voucher becomes fully unspent. This is an
// idempotent pair, not an incremental adjustment.
func Toggle(v *domain.Voucher) {
	if v.Status == domain.StatusUsed {
		v.Spent = 0
		v.Status = domain.StatusUnused
		return
	}
	v.Spent = v.Value
	v.Status = domain.StatusUsed
}

// EditInput carries the full replacement fields for editing a voucher
type EditInput struct {
	Name      string     // Required display label
	Value     float64    // Total face value, must be > 0
	Category  string     // Category label, empty defaults to General
	Code      *string    // Optional voucher code
	Pin       *string    // Optional PIN
	ExpiresOn *time.Time // Optional expiry date
}

// Edit replaces v's editable fields. If the new value drops below the
// current spent, spent is clamped down to the new value (never raised); the
// status is recomputed as used when the clamped spent covers the new value,
// otherwise the prior persisted status stands.
func Edit(v *domain.Voucher, in EditInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return validationf("name is required")
	}
	if !isFinite(in.Value) || in.Value <= 0 {
		return validationf("value must be a positive number")
	}
	v.Name = name
	v.Value = in.Value
	v.Category = categoryOrDefault(in.Category)
	v.Code = in.Code
	v.Pin = in.Pin
	v.ExpiresOn = in.ExpiresOn
	if v.Spent > v.Value {
		v.Spent = v.Value // Clamp down, never raise
	}
	if v.Spent >= v.Value {
		v.Status = domain.StatusUsed
	}
	return nil
}

// ImportRow is one tabular row of a bulk import, every field still in its
// original string encoding.
type ImportRow struct {
	Name      string // Display label
	Value     string // Face value
	Spent     string // Amount already redeemed
	Category  string // Category label
	Code      string // Voucher code
	Pin       string // PIN
	ExpiresOn string // Expiry date as YYYY-MM-DD
}

// ParseImportRows maps raw rows onto insertable vouchers, parsing every
// field defensively: unparseable or non-finite numbers coerce to 0, spent is
// clamped into [0, value], and the status is always recomputed, never
// trusted from the file. Rows with an empty name or non-positive value are
// silently dropped; a batch with no valid rows at all fails so that nothing
// is written.
func ParseImportRows(owner uint, rows []ImportRow) ([]domain.Voucher, error) {
	var out []domain.Voucher
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		value := parseAmount(r.Value)
		if name == "" || value <= 0 {
			continue // Malformed row, dropped without failing the batch
		}
		spent := parseAmount(r.Spent)
		if spent < 0 {
			spent = 0
		}
		if spent > value {
			spent = value
		}
		v := domain.Voucher{
			OwnerID:  owner,
			Name:     name,
			Value:    value,
			Spent:    spent,
			Category: categoryOrDefault(r.Category),
			Status:   statusFor(spent, value),
		}
		if code := strings.TrimSpace(r.Code); code != "" {
			v.Code = &code
		}
		if pin := strings.TrimSpace(r.Pin); pin != "" {
			v.Pin = &pin
		}
		if date := strings.TrimSpace(r.ExpiresOn); date != "" {
			if t, err := time.ParseInLocation(DateLayout, date, time.Local); err == nil {
				v.ExpiresOn = &t
			}
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, validationf("no valid rows")
	}
	return out, nil
}

// statusFor computes the persisted status from a spend level
func statusFor(spent, value float64) string {
	if spent >= value {
		return domain.StatusUsed
	}
	return domain.StatusUnused
}

// categoryOrDefault trims the label and falls back to General when empty
func categoryOrDefault(category string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return domain.CategoryGeneral
}

// parseAmount parses s as a number; garbage and non-finite values coerce to 0
func parseAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(f) {
		return 0
	}
	return f
}

// isFinite reports whether f is neither NaN nor infinite
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
