package domain

import (
	"time" // Calendar dates for expiry

	"github.com/google/uuid" // UUID primary keys
	"gorm.io/gorm"           // GORM ORM library
)

// Voucher categories offered by the picker; imports tolerate free strings
const (
	CategoryGeneral      = "General"
	CategoryShopping     = "Shopping"
	CategoryFood         = "Food"
	CategoryTravel       = "Travel"
	CategoryRecharge     = "Recharge"
	CategorySubscription = "Subscription"
)

// Categories returns the fixed category set in display order
func Categories() []string {
	return []string{
		CategoryGeneral,
		CategoryShopping,
		CategoryFood,
		CategoryTravel,
		CategoryRecharge,
		CategorySubscription,
	}
}

// Persisted lifecycle statuses. StatusExpired is derived on read only and
// must never be written to the database.
const (
	StatusUnused  = "unused"
	StatusUsed    = "used"
	StatusExpired = "expired"
)

// Voucher Model
type Voucher struct {
	ID        string     `gorm:"type:char(36);primaryKey" json:"id"`             // UUID assigned on insert
	OwnerID   uint       `gorm:"index;not null" json:"owner_id"`                 // Foreign key to User
	Name      string     `gorm:"not null" json:"name"`                           // Display label
	Value     float64    `gorm:"not null" json:"value"`                          // Total face value
	Spent     float64    `gorm:"not null;default:0" json:"spent"`                // Cumulative amount redeemed
	Category  string     `gorm:"type:varchar(40);default:General" json:"category"` // Category label
	Code      *string    `json:"code"`                                           // Optional voucher code
	Pin       *string    `json:"pin"`                                            // Optional PIN
	ExpiresOn *time.Time `gorm:"type:date" json:"expires_on"`                    // Optional expiry date, nil means never
	Status    string     `gorm:"type:varchar(16);default:unused" json:"status"`  // Persisted status: unused or used
	CreatedAt int64      `gorm:"autoCreateTime:milli;index" json:"created_at"`   // Timestamp of creation in milliseconds
}

// BeforeCreate assigns the UUID primary key on insert
func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString() // Generate a new UUID if not set
	}
	return nil
}

// Remaining returns the unredeemed balance, floored at zero for display
func (v Voucher) Remaining() float64 {
	remaining := v.Value - v.Spent
	if remaining < 0 {
		return 0
	}
	return remaining
}
