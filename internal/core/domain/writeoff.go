package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type WriteOffReason string

const (
	ReasonExpired      WriteOffReason = "expired"
	ReasonDamaged      WriteOffReason = "damaged"
	ReasonContaminated WriteOffReason = "contaminated"
	ReasonSpoiled      WriteOffReason = "spoiled"
	ReasonOther        WriteOffReason = "other"
)

func (r WriteOffReason) Valid() bool {
	switch r {
	case ReasonExpired, ReasonDamaged, ReasonContaminated, ReasonSpoiled, ReasonOther:
		return true
	}
	return false
}

// InventoryWriteOff records stock removed outside of a sale. Created once,
// never updated.
type InventoryWriteOff struct {
	ID        string
	ProductID string
	Quantity  int
	Reason    WriteOffReason
	Cost      decimal.Decimal
	CreatedAt time.Time
}
