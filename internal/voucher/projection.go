package voucher

import (
	"sort"    // Stable sorting
	"strings" // Case-insensitive search
	"time"    // Derived-status ranking

	"voucher_vault/internal/domain" // Voucher model
)

// Sort keys accepted by Project
const (
	SortCreatedDesc   = "created_desc"        // Store order, newest first (default)
	SortValueDesc     = "value_desc"          // Highest face value first
	SortValueAsc      = "value_asc"           // Lowest face value first
	SortExpiryAsc     = "expiry_asc"          // Soonest expiry first, no expiry last
	SortRemainingDesc = "remaining_desc"      // Largest remaining balance first
	SortUsedFirst     = "status_used_first"   // Used, then unused, then expired
	SortUnusedFirst   = "status_unused_first" // Unused, then used, then expired
)

// CategoryAll keeps every category when filtering
const CategoryAll = "All"

// Project applies the filter, search and sort pipeline, in that order, and
// returns a fresh slice; the input is never mutated and ties keep their
// store order. The whole projection is recomputed on every call, there is no
// incremental update.
func Project(vouchers []domain.Voucher, category, search, sortKey string, now time.Time) []domain.Voucher {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		// Filter by category, then by search term
		if category != "" && category != CategoryAll && v.Category != category {
			continue
		}
		if term != "" && !matchesSearch(v, term) {
			continue
		}
		out = append(out, v)
	}
	switch sortKey {
	case SortValueDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	case SortValueAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	case SortExpiryAsc:
		sort.SliceStable(out, func(i, j int) bool { return expiryKey(out[i]).Before(expiryKey(out[j])) })
	case SortRemainingDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Remaining() > out[j].Remaining() })
	case SortUsedFirst:
		sort.SliceStable(out, func(i, j int) bool {
			return statusRank(out[i], now, true) < statusRank(out[j], now, true)
		})
	case SortUnusedFirst:
		sort.SliceStable(out, func(i, j int) bool {
			return statusRank(out[i], now, false) < statusRank(out[j], now, false)
		})
	default:
		// created_desc and unknown keys: the store already returns newest first
	}
	return out
}

// matchesSearch reports whether the lowercased term appears in the voucher's
// name, code or category
func matchesSearch(v domain.Voucher, term string) bool {
	if strings.Contains(strings.ToLower(v.Name), term) {
		return true
	}
	if v.Code != nil && strings.Contains(strings.ToLower(*v.Code), term) {
		return true
	}
	return strings.Contains(strings.ToLower(v.Category), term)
}

// farFuture stands in for a missing expiry so that never-expiring vouchers
// sort after every dated one
var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// expiryKey returns the voucher's expiry date, or farFuture when absent
func expiryKey(v domain.Voucher) time.Time {
	if v.ExpiresOn == nil {
		return farFuture
	}
	return *v.ExpiresOn
}

// statusRank orders vouchers by derived status; expired always sorts last
func statusRank(v domain.Voucher, now time.Time, usedFirst bool) int {
	switch EffectiveStatus(v, now) {
	case domain.StatusExpired:
		return 2
	case domain.StatusUsed:
		if usedFirst {
			return 0
		}
		return 1
	default:
		if usedFirst {
			return 1
		}
		return 0
	}
}
