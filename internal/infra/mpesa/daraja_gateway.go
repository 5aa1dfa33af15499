package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"captive-wifi-billing/internal/config"
	"captive-wifi-billing/internal/domain/ports/adapter"
)

var _ adapter.PushPaymentGateway = (*DarajaGateway)(nil)

// DarajaGateway implements the push-payment protocol against the Safaricom
// Daraja API using direct HTTP calls: an OAuth client-credentials token
// request followed by an STK push.
type DarajaGateway struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	client         *http.Client
	now            func() time.Time
}

// ProviderDeclinedError means the HTTP transaction succeeded but the provider
// rejected the push request. It is a business failure, not a transport one.
type ProviderDeclinedError struct {
	Code        string
	Description string
}

func (e *ProviderDeclinedError) Error() string {
	return fmt.Sprintf("provider declined push request: code %s, %s", e.Code, e.Description)
}

func NewDarajaGateway(cfg *config.MpesaConfig) *DarajaGateway {
	return &DarajaGateway{
		baseURL:        cfg.BaseURL,
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortcode:      cfg.Shortcode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		client:         &http.Client{Timeout: cfg.Timeout},
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// accessToken obtains a short-lived bearer credential. Each push re-authenticates;
// the token is not cached across calls.
func (g *DarajaGateway) accessToken(ctx context.Context) (string, error) {
	url := g.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(g.consumerKey + ":" + g.consumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w, body: %s", err, string(body))
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token: %s", string(body))
	}
	return tok.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// RequestPush implements adapter.PushPaymentGateway.
func (g *DarajaGateway) RequestPush(ctx context.Context, phone string, amount int64, accountReference, description string) (*adapter.PushResult, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := g.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(g.shortcode + g.passkey + ts))

	reqBody := stkPushRequest{
		BusinessShortCode: g.shortcode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            strconv.FormatInt(amount, 10),
		PartyA:            phone,
		PartyB:            g.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       g.callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push request: %w", err)
	}

	url := g.baseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read push response: %w", err)
	}

	var out stkPushResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push response: %w, body: %s", err, string(body))
	}

	// Daraja signals errors two ways: an errorCode envelope on HTTP 4xx/5xx,
	// and a non-zero ResponseCode on HTTP 200. Both are provider declines.
	if out.ErrorCode != "" {
		return nil, &ProviderDeclinedError{Code: out.ErrorCode, Description: out.ErrorMessage}
	}
	if out.ResponseCode != "0" {
		return nil, &ProviderDeclinedError{Code: out.ResponseCode, Description: out.ResponseDescription}
	}

	return &adapter.PushResult{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		Description:       out.CustomerMessage,
	}, nil
}
