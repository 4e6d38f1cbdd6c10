package models

import "gorm.io/gorm"

// PaymentStatus is the closed set of lifecycle states for a payment
// attempt. A record starts out pending and moves to exactly one of the
// terminal states; it never transitions out of a terminal state.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

const PaymentTypeMpesa = "mpesa"

// Payment is one M-Pesa payment attempt. TransactionID holds the
// CheckoutRequestID issued by the gateway at initiation time and is the
// correlation key for callbacks and status queries. Records are never
// deleted; payment history is an append-only ledger.
type Payment struct {
	gorm.Model
	UserID        uint          `gorm:"index;not null" json:"user_id"`
	Amount        float64       `gorm:"not null" json:"amount"`
	PaymentType   string        `gorm:"not null" json:"payment_type"`
	PhoneNumber   string        `gorm:"not null" json:"phone_number"`
	Reference     string        `gorm:"not null" json:"reference"`
	Status        PaymentStatus `gorm:"not null" json:"status"`
	TransactionID string        `gorm:"uniqueIndex;not null" json:"transaction_id"`
}
