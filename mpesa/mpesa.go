package mpesa

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config carries the Daraja API credentials and endpoints. It is built
// once at startup and never mutated afterwards; the defaults point at
// the Safaricom sandbox and are placeholders only.
type Config struct {
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	Passkey         string
	CallbackURL     string
	BaseURL         string
	TransactionType string
	Timeout         time.Duration
}

// LoadConfig reads the gateway configuration from the environment,
// falling back to the sandbox defaults.
func LoadConfig() Config {
	return Config{
		ConsumerKey:     getenv("MPESA_CONSUMER_KEY", "your-consumer-key"),
		ConsumerSecret:  getenv("MPESA_CONSUMER_SECRET", "your-consumer-secret"),
		ShortCode:       getenv("MPESA_SHORT_CODE", "174379"),
		Passkey:         getenv("MPESA_PASSKEY", "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"),
		CallbackURL:     getenv("MPESA_CALLBACK_URL", "http://localhost:8080/api/payments/mpesa/callback"),
		BaseURL:         getenv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		TransactionType: "CustomerPayBillOnline",
		Timeout:         30 * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Client talks to the Daraja API. It holds no mutable state; every call
// acquires a fresh access token.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// AuthError means the client-credentials exchange failed. The whole
// operation fails with it; there is no internal retry.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa auth failed: %v", e.Err)
	}
	return fmt.Sprintf("mpesa auth failed: status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// GatewayError is a non-2xx response from the Daraja API, carrying the
// provider's error body.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mpesa gateway error: status %d: %s", e.StatusCode, e.Body)
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// AccessToken exchanges the client credentials for a bearer token.
func (c *Client) AccessToken() (string, error) {
	req, err := http.NewRequest("GET", c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &AuthError{StatusCode: resp.StatusCode}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &AuthError{Err: err}
	}

	return body.AccessToken, nil
}

// InitiateSTKPush asks the gateway to prompt the payer's device for PIN
// confirmation. Amount must be a whole number of shillings.
func (c *Client) InitiateSTKPush(phoneNumber string, amount int, reference, description string) (*STKPushResponse, error) {
	ts := Timestamp(time.Now())
	formattedPhone := FormatPhoneNumber(phoneNumber)

	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		"Timestamp":         ts,
		"TransactionType":   c.cfg.TransactionType,
		"Amount":            amount,
		"PartyA":            formattedPhone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       formattedPhone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   description,
	}

	var out STKPushResponse
	if err := c.post("/mpesa/stkpush/v1/processrequest", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuerySTKStatus asks the gateway for the current result of a push
// request. The request is re-signed with a fresh timestamp.
func (c *Client) QuerySTKStatus(checkoutRequestID string) (*STKQueryResponse, error) {
	ts := Timestamp(time.Now())

	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	var out STKQueryResponse
	if err := c.post("/mpesa/stkpushquery/v1/query", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(path string, payload interface{}, out interface{}) error {
	token, err := c.AccessToken()
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.cfg.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return json.Unmarshal(respBody, out)
}

// FormatPhoneNumber rewrites a payer number into the 254... form the
// gateway requires. Leading-zero numbers have the zero replaced with
// the country code and 254-prefixed numbers pass through. Anything else
// is prefixed verbatim, which double-prefixes inputs like "+254..." —
// kept as the product-level rule stands.
func FormatPhoneNumber(phone string) string {
	switch {
	case strings.HasPrefix(phone, "0"):
		return "254" + phone[1:]
	case strings.HasPrefix(phone, "254"):
		return phone
	default:
		return "254" + phone
	}
}

// Timestamp renders t in the YYYYMMDDHHmmss form Daraja expects.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Password builds the request password: base64 of shortcode, passkey
// and timestamp concatenated.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}
