package voucher_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voucher_vault/internal/domain"
	"voucher_vault/internal/voucher"
)

func TestNewVoucher(t *testing.T) {
	v, err := voucher.NewVoucher(7, voucher.AddInput{Name: "Amazon", Value: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint(7), v.OwnerID)
	assert.Equal(t, "Amazon", v.Name)
	assert.Equal(t, 1000.0, v.Value)
	assert.Equal(t, 0.0, v.Spent)
	assert.Equal(t, domain.StatusUnused, v.Status)
	assert.Equal(t, domain.CategoryGeneral, v.Category) // Empty category defaults
}

func TestNewVoucherTrimsName(t *testing.T) {
	v, err := voucher.NewVoucher(1, voucher.AddInput{Name: "  Swiggy  ", Value: 250, Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, "Swiggy", v.Name)
	assert.Equal(t, domain.CategoryFood, v.Category)
}

func TestNewVoucherInitialUsed(t *testing.T) {
	// Partially used on arrival
	v, err := voucher.NewVoucher(1, voucher.AddInput{Name: "Gift", Value: 500, InitialUsed: 100})
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.Spent)
	assert.Equal(t, domain.StatusUnused, v.Status)

	// Fully used on arrival
	v, err = voucher.NewVoucher(1, voucher.AddInput{Name: "Gift", Value: 500, InitialUsed: 500})
	require.NoError(t, err)
	assert.Equal(t, 500.0, v.Spent)
	assert.Equal(t, domain.StatusUsed, v.Status)
}

func TestNewVoucherValidation(t *testing.T) {
	cases := []struct {
		name string
		in   voucher.AddInput
	}{
		{"empty name", voucher.AddInput{Name: "", Value: 100}},
		{"blank name", voucher.AddInput{Name: "   ", Value: 100}},
		{"zero value", voucher.AddInput{Name: "x", Value: 0}},
		{"negative value", voucher.AddInput{Name: "x", Value: -5}},
		{"nan value", voucher.AddInput{Name: "x", Value: math.NaN()}},
		{"inf value", voucher.AddInput{Name: "x", Value: math.Inf(1)}},
		{"negative initial used", voucher.AddInput{Name: "x", Value: 100, InitialUsed: -1}},
		{"initial used above value", voucher.AddInput{Name: "x", Value: 100, InitialUsed: 101}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := voucher.NewVoucher(1, tc.in)
			assert.True(t, voucher.IsValidation(err), "want ValidationError, got %v", err)
		})
	}
}

func TestPartialUse(t *testing.T) {
	v := domain.Voucher{Value: 1000, Spent: 200, Status: domain.StatusUnused}
	require.NoError(t, voucher.PartialUse(&v, 300))
	assert.Equal(t, 500.0, v.Spent)
	assert.Equal(t, domain.StatusUnused, v.Status) // Below value, status unchanged
}

func TestPartialUseExhaustsBalance(t *testing.T) {
	v := domain.Voucher{Value: 1000, Spent: 200, Status: domain.StatusUnused}
	require.NoError(t, voucher.PartialUse(&v, 800))
	assert.Equal(t, 1000.0, v.Spent)
	assert.Equal(t, domain.StatusUsed, v.Status)
}

func TestPartialUseOverdraftRejected(t *testing.T) {
	v := domain.Voucher{Value: 1000, Spent: 200, Status: domain.StatusUnused}
	err := voucher.PartialUse(&v, 801)
	assert.True(t, voucher.IsValidation(err))
	// The voucher is unchanged after a rejected mutation
	assert.Equal(t, 200.0, v.Spent)
	assert.Equal(t, domain.StatusUnused, v.Status)
}

func TestPartialUseInvalidAmounts(t *testing.T) {
	for _, amount := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		v := domain.Voucher{Value: 100, Spent: 10, Status: domain.StatusUnused}
		err := voucher.PartialUse(&v, amount)
		assert.True(t, voucher.IsValidation(err), "amount %v should be rejected", amount)
		assert.Equal(t, 10.0, v.Spent)
	}
}

func TestPartialUseZeroRemaining(t *testing.T) {
	// A fully spent voucher rejects every positive amount
	v := domain.Voucher{Value: 100, Spent: 100, Status: domain.StatusUsed}
	err := voucher.PartialUse(&v, 0.01)
	assert.True(t, voucher.IsValidation(err))
	assert.Equal(t, 100.0, v.Spent)
}

func TestToggle(t *testing.T) {
	v := domain.Voucher{Value: 300, Spent: 120, Status: domain.StatusUnused}

	voucher.Toggle(&v) // unused -> used, fully spent
	assert.Equal(t, 300.0, v.Spent)
	assert.Equal(t, domain.StatusUsed, v.Status)

	voucher.Toggle(&v) // used -> unused, fully unspent
	assert.Equal(t, 0.0, v.Spent)
	assert.Equal(t, domain.StatusUnused, v.Status)
}

func TestToggleTwiceFromUsedRestores(t *testing.T) {
	v := domain.Voucher{Value: 300, Spent: 300, Status: domain.StatusUsed}
	voucher.Toggle(&v)
	voucher.Toggle(&v)
	assert.Equal(t, 300.0, v.Spent)
	assert.Equal(t, domain.StatusUsed, v.Status)
}

func TestEdit(t *testing.T) {
	code := "ABCD-1"
	v := domain.Voucher{Name: "Old", Value: 1000, Spent: 200, Category: "Food", Status: domain.StatusUnused}
	err := voucher.Edit(&v, voucher.EditInput{
		Name:      "New name",
		Value:     1200,
		Category:  "Travel",
		Code:      &code,
		ExpiresOn: date(2027, time.May, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "New name", v.Name)
	assert.Equal(t, 1200.0, v.Value)
	assert.Equal(t, 200.0, v.Spent) // Untouched, still below the new value
	assert.Equal(t, "Travel", v.Category)
	assert.Equal(t, "ABCD-1", *v.Code)
	assert.Nil(t, v.Pin) // Full replacement clears omitted optionals
	assert.Equal(t, domain.StatusUnused, v.Status)
}

func TestEditClampsSpentDown(t *testing.T) {
	v := domain.Voucher{Name: "Gift", Value: 1000, Spent: 700, Status: domain.StatusUnused}
	require.NoError(t, voucher.Edit(&v, voucher.EditInput{Name: "Gift", Value: 500}))
	assert.Equal(t, 500.0, v.Spent) // Clamped down to the new value
	assert.Equal(t, domain.StatusUsed, v.Status)
}

func TestEditRaisingValueKeepsStatus(t *testing.T) {
	// A used voucher edited to a higher value keeps its persisted status
	v := domain.Voucher{Name: "Gift", Value: 500, Spent: 500, Status: domain.StatusUsed}
	require.NoError(t, voucher.Edit(&v, voucher.EditInput{Name: "Gift", Value: 800}))
	assert.Equal(t, 500.0, v.Spent) // Spent is never raised
	assert.Equal(t, domain.StatusUsed, v.Status)
}

func TestEditValidation(t *testing.T) {
	v := domain.Voucher{Name: "Gift", Value: 100, Spent: 40, Status: domain.StatusUnused}
	assert.True(t, voucher.IsValidation(voucher.Edit(&v, voucher.EditInput{Name: "", Value: 100})))
	assert.True(t, voucher.IsValidation(voucher.Edit(&v, voucher.EditInput{Name: "x", Value: 0})))
	assert.True(t, voucher.IsValidation(voucher.Edit(&v, voucher.EditInput{Name: "x", Value: math.Inf(1)})))
	// Rejected edits leave the voucher unchanged
	assert.Equal(t, "Gift", v.Name)
	assert.Equal(t, 100.0, v.Value)
	assert.Equal(t, 40.0, v.Spent)
}

func TestParseImportRows(t *testing.T) {
	rows := []voucher.ImportRow{
		{Name: "", Value: "500"},                                  // Dropped: empty name
		{Name: "Gift", Value: "0"},                                // Dropped: non-positive value
		{Name: "Gift", Value: "300", Spent: "400"},                // Clamped to spent=300
		{Name: "Uber", Value: "junk"},                             // Dropped: value coerces to 0
		{Name: "Zomato", Value: "250", Spent: "-20", Category: "Food"}, // Negative spent coerces up to 0
		{Name: "Flight", Value: "800", Spent: "NaN", ExpiresOn: "2026-12-31"},
	}
	out, err := voucher.ParseImportRows(3, rows)
	require.NoError(t, err)
	require.Len(t, out, 3)

	clamped := out[0]
	assert.Equal(t, "Gift", clamped.Name)
	assert.Equal(t, 300.0, clamped.Spent) // Clamped into [0, value]
	assert.Equal(t, domain.StatusUsed, clamped.Status)

	zomato := out[1]
	assert.Equal(t, 0.0, zomato.Spent)
	assert.Equal(t, domain.StatusUnused, zomato.Status)
	assert.Equal(t, domain.CategoryFood, zomato.Category)

	flight := out[2]
	assert.Equal(t, 0.0, flight.Spent) // Non-finite spent coerces to 0
	require.NotNil(t, flight.ExpiresOn)
	assert.Equal(t, "2026-12-31", flight.ExpiresOn.Format(voucher.DateLayout))

	for _, v := range out {
		assert.Equal(t, uint(3), v.OwnerID)
	}
}

func TestParseImportRowsOptionalFields(t *testing.T) {
	rows := []voucher.ImportRow{
		{Name: "Steam", Value: "60", Code: " XY-99 ", Pin: "1234"},
		{Name: "Plain", Value: "10"},
	}
	out, err := voucher.ParseImportRows(1, rows)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Code)
	assert.Equal(t, "XY-99", *out[0].Code) // Trimmed
	require.NotNil(t, out[0].Pin)
	assert.Equal(t, "1234", *out[0].Pin)
	assert.Nil(t, out[1].Code) // Absent stays nil
	assert.Nil(t, out[1].Pin)
	assert.Nil(t, out[1].ExpiresOn)
}

func TestParseImportRowsAllBadFails(t *testing.T) {
	rows := []voucher.ImportRow{
		{Name: "", Value: "100"},
		{Name: "x", Value: "-3"},
		{Name: "y", Value: "garbage"},
	}
	out, err := voucher.ParseImportRows(1, rows)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, voucher.IsValidation(err))
	assert.EqualError(t, err, "no valid rows")
}

func TestSpentStaysWithinValueAfterEveryMutation(t *testing.T) {
	// Invariant check across a whole mutation sequence
	v, err := voucher.NewVoucher(1, voucher.AddInput{Name: "Gift", Value: 1000, InitialUsed: 250})
	require.NoError(t, err)

	steps := []func(){
		func() { _ = voucher.PartialUse(&v, 500) },
		func() { _ = voucher.PartialUse(&v, 9999) }, // Rejected
		func() { voucher.Toggle(&v) },
		func() { _ = voucher.Edit(&v, voucher.EditInput{Name: "Gift", Value: 400}) },
		func() { voucher.Toggle(&v) },
		func() { _ = voucher.PartialUse(&v, 400) },
	}
	for i, step := range steps {
		step()
		assert.GreaterOrEqual(t, v.Spent, 0.0, "step %d", i)
		assert.LessOrEqual(t, v.Spent, v.Value, "step %d", i)
	}
}
