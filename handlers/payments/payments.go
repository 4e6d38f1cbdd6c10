package payments

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/mpesa"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

var (
	gateway  *mpesa.Client
	fallback FallbackPolicy
)

// Configure wires the gateway client and the fallback policy. Called
// once from main before the routes are served.
func Configure(client *mpesa.Client, policy FallbackPolicy) {
	gateway = client
	fallback = policy
}

// generateReference builds the caller-visible correlation string for
// one payment attempt. Two initiations by the same user in the same
// millisecond collide; tolerated for now, see DESIGN.md.
func generateReference(userID uint, at time.Time) string {
	return fmt.Sprintf("SCN-%d-%d", userID, at.UnixMilli())
}

type initiatePaymentRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// InitiateMpesaPayment starts an STK push for the authenticated user
// and records the pending payment. Nothing is persisted when the
// gateway rejects the request, so the caller can safely retry; each
// retry gets a fresh reference.
func InitiateMpesaPayment(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
		return
	}
	if req.PhoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}

	description := req.Description
	if description == "" {
		description = "Sokoni Connect Service Fee"
	}

	reference := generateReference(user.ID, time.Now())

	// M-Pesa only accepts whole shillings.
	resp, err := gateway.InitiateSTKPush(req.PhoneNumber, int(math.Round(req.Amount)), reference, description)
	if err != nil {
		var authErr *mpesa.AuthError
		if errors.As(err, &authErr) {
			log.Printf("M-Pesa token acquisition failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to authenticate with the payment gateway"})
			return
		}
		log.Printf("M-Pesa STK push failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initiate payment"})
		return
	}

	payment := models.Payment{
		UserID:        user.ID,
		Amount:        req.Amount,
		PaymentType:   models.PaymentTypeMpesa,
		PhoneNumber:   req.PhoneNumber,
		Reference:     reference,
		Status:        models.PaymentPending,
		TransactionID: resp.CheckoutRequestID,
	}

	if err := utils.SokoniDB.Create(&payment).Error; err != nil {
		log.Printf("Failed to record payment %s: %v", resp.CheckoutRequestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment initiated but could not be recorded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkoutRequestId":   resp.CheckoutRequestID,
		"merchantRequestId":   resp.MerchantRequestID,
		"responseCode":        resp.ResponseCode,
		"responseDescription": resp.ResponseDescription,
		"reference":           reference,
	})
}

type checkStatusRequest struct {
	CheckoutRequestID string `json:"checkoutRequestId"`
}

// CheckPaymentStatus resolves the authoritative status for one payment.
// This is the endpoint the client poller drives.
func CheckPaymentStatus(c *gin.Context) {
	var req checkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CheckoutRequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkoutRequestId is required"})
		return
	}

	status, detail, err := resolvePaymentStatus(utils.SokoniDB, gateway, fallback, req.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		var gwErr *mpesa.GatewayError
		var authErr *mpesa.AuthError
		if errors.As(err, &gwErr) || errors.As(err, &authErr) {
			log.Printf("M-Pesa status query failed for %s: %v", req.CheckoutRequestID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to query the payment gateway"})
			return
		}
		log.Printf("Failed to resolve payment %s: %v", req.CheckoutRequestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check payment status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"detail": detail,
	})
}

// MpesaCallback receives the gateway's asynchronous result. The caller
// is an external unauthenticated system that re-delivers on any
// non-200, so this endpoint always acknowledges: malformed bodies and
// unknown IDs are logged and dropped, and duplicate deliveries hit the
// idempotent state machine.
func MpesaCallback(c *gin.Context) {
	var body struct {
		Body struct {
			StkCallback struct {
				MerchantRequestID string `json:"MerchantRequestID"`
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        int    `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}

	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("mpesa callback: malformed payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	cb := body.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		log.Printf("mpesa callback: missing CheckoutRequestID")
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	applyCallbackResult(utils.SokoniDB, cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// GetPaymentHistory lists the user's payments, newest first. Stale
// pending records past the fallback threshold are reconciled before the
// listing so the history never disagrees with the poller.
func GetPaymentHistory(c *gin.Context) {
	userInterface, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return
	}
	user := userInterface.(models.User)

	if err := reconcileStalePayments(utils.SokoniDB, user.ID, fallback); err != nil {
		log.Printf("Failed to reconcile stale payments for user %d: %v", user.ID, err)
	}

	var payments []models.Payment
	if err := utils.SokoniDB.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment history"})
		return
	}

	c.JSON(http.StatusOK, payments)
}
