package voucher

import (
	"time" // Time comparisons

	"voucher_vault/internal/domain" // Voucher model
)

// EffectiveStatus computes the status shown to the user by overlaying expiry
// onto the persisted status. If the voucher has an expiry date and now is
// strictly after 23:59:59.999 local time on that date, it reads as expired
// regardless of what is stored. Otherwise the persisted status stands, with
// unknown or empty values read as unused. Pure: never writes back, expiry is
// re-evaluated lazily on every read.
func EffectiveStatus(v domain.Voucher, now time.Time) string {
	if v.ExpiresOn != nil {
		// End of the expiry day in local time
		endOfDay := time.Date(v.ExpiresOn.Year(), v.ExpiresOn.Month(), v.ExpiresOn.Day(),
			23, 59, 59, 999_000_000, time.Local)
		if now.After(endOfDay) {
			return domain.StatusExpired
		}
	}
	if v.Status == domain.StatusUsed {
		return domain.StatusUsed
	}
	return domain.StatusUnused
}
