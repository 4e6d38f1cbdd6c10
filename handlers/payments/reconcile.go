package payments

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/mpesa"

	"gorm.io/gorm"
)

// ErrPaymentNotFound means no payment record matches the given
// CheckoutRequestID.
var ErrPaymentNotFound = errors.New("payment not found")

// FallbackPolicy controls the elapsed-time completion rule. Without a
// publicly reachable callback URL the gateway can never deliver its
// result, so a pending record older than Threshold is resolved to
// completed. That trades accuracy for convergence: a genuine provider
// failure after the threshold is not reflected. Real deployments with
// verified callback delivery should disable it.
type FallbackPolicy struct {
	Enabled   bool
	Threshold time.Duration
}

// LoadFallbackPolicy reads the policy from the environment: enabled by
// default with a 10 second threshold.
func LoadFallbackPolicy() FallbackPolicy {
	policy := FallbackPolicy{Enabled: true, Threshold: 10 * time.Second}

	if v := os.Getenv("MPESA_FALLBACK_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			policy.Enabled = enabled
		}
	}
	if v := os.Getenv("MPESA_FALLBACK_THRESHOLD_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			policy.Threshold = time.Duration(secs) * time.Second
		}
	}

	return policy
}

// markTerminal moves a pending payment to the given terminal status.
// The update is predicated on status = pending, so a race between the
// callback path and the fallback path applies exactly one transition;
// the loser's write affects zero rows. Returns whether this call won.
func markTerminal(db *gorm.DB, checkoutRequestID string, status models.PaymentStatus) (bool, error) {
	res := db.Model(&models.Payment{}).
		Where("transaction_id = ? AND status = ?", checkoutRequestID, models.PaymentPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// applyCallbackResult records the outcome reported by the gateway
// callback. A zero result code completes the payment, anything else
// fails it. Unknown IDs and records already terminal are logged and
// ignored; the callback path never fails loudly.
func applyCallbackResult(db *gorm.DB, checkoutRequestID string, resultCode int, resultDesc string) {
	status := models.PaymentCompleted
	if resultCode != 0 {
		status = models.PaymentFailed
	}

	applied, err := markTerminal(db, checkoutRequestID, status)
	if err != nil {
		log.Printf("mpesa callback: failed to update payment %s: %v", checkoutRequestID, err)
		return
	}

	if !applied {
		// Either a duplicate delivery for a record that is already
		// terminal, or a CheckoutRequestID we never issued.
		log.Printf("mpesa callback: no pending payment for %s (result %d: %s)", checkoutRequestID, resultCode, resultDesc)
		return
	}

	log.Printf("mpesa callback: payment %s marked %s (%s)", checkoutRequestID, status, resultDesc)
}

// resolvePaymentStatus returns the authoritative status for a payment.
// Terminal records are returned as stored without touching the gateway.
// A pending record past the fallback threshold is completed on the
// spot. Otherwise the gateway is queried live; a "0" result is
// persisted immediately rather than waiting for the callback, so the
// poller and the callback path converge on the same answer.
func resolvePaymentStatus(db *gorm.DB, gateway *mpesa.Client, policy FallbackPolicy, checkoutRequestID string) (models.PaymentStatus, string, error) {
	var payment models.Payment
	if err := db.Where("transaction_id = ?", checkoutRequestID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", ErrPaymentNotFound
		}
		return "", "", err
	}

	if payment.Status.Terminal() {
		return payment.Status, "Payment already " + string(payment.Status), nil
	}

	if policy.Enabled && time.Since(payment.CreatedAt) >= policy.Threshold {
		if _, err := markTerminal(db, checkoutRequestID, models.PaymentCompleted); err != nil {
			return "", "", err
		}
		// Whether this call or a concurrent one applied the write, the
		// stored status is now authoritative.
		if err := db.Where("transaction_id = ?", checkoutRequestID).First(&payment).Error; err != nil {
			return "", "", err
		}
		return payment.Status, "Payment confirmed", nil
	}

	if gateway != nil {
		query, err := gateway.QuerySTKStatus(checkoutRequestID)
		if err != nil {
			return "", "", err
		}
		if query.ResultCode == "0" {
			if _, err := markTerminal(db, checkoutRequestID, models.PaymentCompleted); err != nil {
				return "", "", err
			}
			return models.PaymentCompleted, query.ResultDesc, nil
		}
		if query.ResultDesc != "" {
			return models.PaymentPending, query.ResultDesc, nil
		}
	}

	return models.PaymentPending, "Payment is being processed", nil
}

// reconcileStalePayments completes any of the user's pending payments
// older than the fallback threshold. Used by the history endpoint so a
// listing never shows records stuck pending forever.
func reconcileStalePayments(db *gorm.DB, userID uint, policy FallbackPolicy) error {
	if !policy.Enabled {
		return nil
	}

	cutoff := time.Now().Add(-policy.Threshold)
	res := db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ? AND created_at <= ?", userID, models.PaymentPending, cutoff).
		Update("status", models.PaymentCompleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("Reconciled %d stale pending payment(s) for user %d", res.RowsAffected, userID)
	}
	return nil
}
