package payments

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KimutaiAsbel/SokoniConnect/models"
	"github.com/KimutaiAsbel/SokoniConnect/mpesa"
	"github.com/KimutaiAsbel/SokoniConnect/utils"

	"github.com/gin-gonic/gin"
)

// fakeDaraja stands in for the sandbox: it issues tokens, accepts STK
// pushes and answers status queries with a fixed result code.
func fakeDaraja(t *testing.T, checkoutRequestID, queryResultCode string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
		case "/mpesa/stkpush/v1/processrequest":
			json.NewEncoder(w).Encode(mpesa.STKPushResponse{
				MerchantRequestID:   "29115-34620561-1",
				CheckoutRequestID:   checkoutRequestID,
				ResponseCode:        "0",
				ResponseDescription: "Success. Request accepted for processing",
			})
		case "/mpesa/stkpushquery/v1/query":
			json.NewEncoder(w).Encode(mpesa.STKQueryResponse{
				ResponseCode: "0",
				ResultCode:   queryResultCode,
				ResultDesc:   "The service request is processed successfully.",
			})
		default:
			t.Errorf("unexpected gateway path %s", r.URL.Path)
		}
	}))
}

func newTestRouter(t *testing.T, user models.User) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/api/payments/mpesa/callback", MpesaCallback)

	authed := r.Group("/api/mpesa")
	authed.Use(func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	})
	authed.POST("/initiate-payment", InitiateMpesaPayment)
	authed.POST("/check-payment-status", CheckPaymentStatus)
	authed.GET("/payment-history", GetPaymentHistory)

	return r
}

func gatewayClient(baseURL string) *mpesa.Client {
	return mpesa.NewClient(mpesa.Config{
		ConsumerKey:     "key",
		ConsumerSecret:  "secret",
		ShortCode:       "174379",
		Passkey:         "passkey",
		CallbackURL:     "http://localhost:8080/api/payments/mpesa/callback",
		BaseURL:         baseURL,
		TransactionType: "CustomerPayBillOnline",
		Timeout:         5 * time.Second,
	})
}

func TestInitiateThenCallbackScenario(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db

	daraja := fakeDaraja(t, "ws_CO_123", "0")
	defer daraja.Close()
	Configure(gatewayClient(daraja.URL), FallbackPolicy{Enabled: true, Threshold: 10 * time.Second})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	r := newTestRouter(t, user)

	// Initiate
	body := `{"phoneNumber":"0712345678","amount":100}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/mpesa/initiate-payment", strings.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("initiate status = %d, body %s", w.Code, w.Body.String())
	}

	var initResp struct {
		CheckoutRequestID string `json:"checkoutRequestId"`
		Reference         string `json:"reference"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &initResp); err != nil {
		t.Fatalf("failed to decode initiate response: %v", err)
	}
	if initResp.CheckoutRequestID != "ws_CO_123" {
		t.Errorf("checkoutRequestId = %q, want ws_CO_123", initResp.CheckoutRequestID)
	}
	if !strings.HasPrefix(initResp.Reference, "SCN-") {
		t.Errorf("reference = %q, want SCN- prefix", initResp.Reference)
	}

	if got := paymentStatus(t, db, "ws_CO_123"); got != models.PaymentPending {
		t.Errorf("stored status after initiation = %q, want %q", got, models.PaymentPending)
	}

	// Callback completes it
	callback := `{"Body":{"stkCallback":{"MerchantRequestID":"29115-34620561-1","CheckoutRequestID":"ws_CO_123","ResultCode":0,"ResultDesc":"Success"}}}`
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/payments/mpesa/callback", strings.NewReader(callback))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("callback status = %d", w.Code)
	}
	if got := paymentStatus(t, db, "ws_CO_123"); got != models.PaymentCompleted {
		t.Errorf("status after callback = %q, want %q", got, models.PaymentCompleted)
	}

	// A duplicate delivery changes nothing
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/payments/mpesa/callback", strings.NewReader(callback))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("duplicate callback status = %d", w.Code)
	}
	if got := paymentStatus(t, db, "ws_CO_123"); got != models.PaymentCompleted {
		t.Errorf("status after duplicate callback = %q, want %q", got, models.PaymentCompleted)
	}
}

func TestInitiateRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db
	Configure(nil, FallbackPolicy{Enabled: true, Threshold: 10 * time.Second})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	r := newTestRouter(t, user)

	tests := []struct {
		name string
		body string
	}{
		{name: "Zero amount", body: `{"phoneNumber":"0712345678","amount":0}`},
		{name: "Negative amount", body: `{"phoneNumber":"0712345678","amount":-5}`},
		{name: "Missing phone", body: `{"amount":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/mpesa/initiate-payment", strings.NewReader(tt.body))
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}

			var count int64
			db.Model(&models.Payment{}).Count(&count)
			if count != 0 {
				t.Errorf("payment count = %d, want 0 (nothing persisted on validation failure)", count)
			}
		})
	}
}

func TestInitiateGatewayFailurePersistsNothing(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db

	daraja := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"errorMessage":"Spike arrest violation"}`))
	}))
	defer daraja.Close()
	Configure(gatewayClient(daraja.URL), FallbackPolicy{Enabled: true, Threshold: 10 * time.Second})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	r := newTestRouter(t, user)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/mpesa/initiate-payment", strings.NewReader(`{"phoneNumber":"0712345678","amount":100}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Errorf("payment count = %d, want 0 (no record on gateway failure)", count)
	}
}

func TestCallbackMalformedBodyStillAccepted(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db
	Configure(nil, FallbackPolicy{})

	r := newTestRouter(t, models.User{})

	for _, body := range []string{`not json at all`, `{"Body":`, `{}`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/payments/mpesa/callback", bytes.NewBufferString(body))
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("callback status for %q = %d, want 200", body, w.Code)
		}
	}
}

func TestCheckStatusNotFound(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db
	Configure(nil, FallbackPolicy{})

	r := newTestRouter(t, models.User{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/mpesa/check-payment-status", strings.NewReader(`{"checkoutRequestId":"ws_CO_missing"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCheckStatusFallbackScenario(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db

	// Gateway reports still-processing; only the elapsed-time rule can
	// complete the record.
	daraja := fakeDaraja(t, "ws_CO_123", "1037")
	defer daraja.Close()
	Configure(gatewayClient(daraja.URL), FallbackPolicy{Enabled: true, Threshold: 10 * time.Second})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	r := newTestRouter(t, user)

	createPendingPayment(t, db, "ws_CO_123", time.Now())

	check := func() (models.PaymentStatus, int) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/mpesa/check-payment-status", strings.NewReader(`{"checkoutRequestId":"ws_CO_123"}`))
		r.ServeHTTP(w, req)

		var resp struct {
			Status models.PaymentStatus `json:"status"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		return resp.Status, w.Code
	}

	// Immediately after initiation: still pending.
	if status, code := check(); code != http.StatusOK || status != models.PaymentPending {
		t.Errorf("fresh check = (%q, %d), want (pending, 200)", status, code)
	}

	// Age the record past the threshold; the same query now converges.
	if err := db.Model(&models.Payment{}).Where("transaction_id = ?", "ws_CO_123").
		Update("created_at", time.Now().Add(-30*time.Second)).Error; err != nil {
		t.Fatalf("failed to age payment: %v", err)
	}

	if status, code := check(); code != http.StatusOK || status != models.PaymentCompleted {
		t.Errorf("aged check = (%q, %d), want (completed, 200)", status, code)
	}
	if got := paymentStatus(t, db, "ws_CO_123"); got != models.PaymentCompleted {
		t.Errorf("stored status = %q, want %q", got, models.PaymentCompleted)
	}
}

func TestCheckStatusPersistsLiveQuerySuccess(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db

	daraja := fakeDaraja(t, "ws_CO_123", "0")
	defer daraja.Close()
	Configure(gatewayClient(daraja.URL), FallbackPolicy{Enabled: true, Threshold: time.Hour})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	r := newTestRouter(t, user)

	createPendingPayment(t, db, "ws_CO_123", time.Now())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/mpesa/check-payment-status", strings.NewReader(`{"checkoutRequestId":"ws_CO_123"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := paymentStatus(t, db, "ws_CO_123"); got != models.PaymentCompleted {
		t.Errorf("stored status after live-query success = %q, want %q", got, models.PaymentCompleted)
	}
}

func TestPaymentHistoryReconcilesAndOrders(t *testing.T) {
	db := newTestDB(t)
	utils.SokoniDB = db
	Configure(nil, FallbackPolicy{Enabled: true, Threshold: 10 * time.Second})

	user := models.User{Username: "demo", Email: "demo@sokoni.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	r := newTestRouter(t, user)

	old := models.Payment{
		UserID: user.ID, Amount: 50, PaymentType: models.PaymentTypeMpesa,
		PhoneNumber: "0712345678", Reference: "SCN-1-1", Status: models.PaymentPending,
		TransactionID: "ws_CO_old",
	}
	old.CreatedAt = time.Now().Add(-time.Minute)
	recent := models.Payment{
		UserID: user.ID, Amount: 75, PaymentType: models.PaymentTypeMpesa,
		PhoneNumber: "0712345678", Reference: "SCN-1-2", Status: models.PaymentPending,
		TransactionID: "ws_CO_new",
	}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	if err := db.Create(&recent).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/mpesa/payment-history", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var history []models.Payment
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].TransactionID != "ws_CO_new" {
		t.Errorf("first history entry = %q, want newest first", history[0].TransactionID)
	}
	if history[1].Status != models.PaymentCompleted {
		t.Errorf("stale entry status = %q, want reconciled to %q", history[1].Status, models.PaymentCompleted)
	}
	if history[0].Status != models.PaymentPending {
		t.Errorf("fresh entry status = %q, want still %q", history[0].Status, models.PaymentPending)
	}
}
