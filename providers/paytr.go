package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/go-resty/resty/v2"
)

const (
	defaultPayTRTokenURL  = "https://www.paytr.com/odeme/api/get-token"
	defaultPayTRIframeURL = "https://www.paytr.com/odeme/guvenli"
)

type PayTRConfig struct {
	MerchantID     string
	MerchantKey    string
	MerchantSalt   string
	TokenURL       string
	IframeBaseURL  string
	OkURL          string
	FailURL        string
	TestMode       bool
	Debug          bool
	NoInstallment  bool
	MaxInstallment int
	// TimeoutLimit is how long, in minutes, the payment page stays valid.
	TimeoutLimit int
	Lang         string
	HTTPTimeout  time.Duration
}

// PayTRProvider implements PaymentProvider against the PayTR iframe API.
type PayTRProvider struct {
	cfg    PayTRConfig
	client *resty.Client
}

// NewPayTRProvider creates a new PayTRProvider.
func NewPayTRProvider(cfg PayTRConfig) *PayTRProvider {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultPayTRTokenURL
	}
	if cfg.IframeBaseURL == "" {
		cfg.IframeBaseURL = defaultPayTRIframeURL
	}
	if cfg.TimeoutLimit <= 0 {
		cfg.TimeoutLimit = 30
	}
	if cfg.Lang == "" {
		cfg.Lang = "tr"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("Accept", "application/json")

	return &PayTRProvider{cfg: cfg, client: client}
}

func (p *PayTRProvider) Name() string {
	return models.ProviderPayTR
}

// ---- gateway response ----

type payTRTokenResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

// ---- PaymentProvider implementation ----

func (p *PayTRProvider) BuildTokenRequest(req TokenRequest) (*SignedRequest, error) {
	if req.MerchantOID == "" {
		return nil, errors.New("paytr: merchant_oid is required")
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("paytr: invalid amount %d", req.Amount)
	}

	basket, err := encodeBasket(req.Basket, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("paytr: encode basket: %w", err)
	}

	form := map[string]string{
		"merchant_id":       p.cfg.MerchantID,
		"user_ip":           req.UserIP,
		"merchant_oid":      req.MerchantOID,
		"email":             req.Email,
		"payment_amount":    strconv.FormatInt(req.Amount, 10),
		"user_basket":       basket,
		"debug_on":          boolFlag(p.cfg.Debug),
		"no_installment":    boolFlag(p.cfg.NoInstallment),
		"max_installment":   strconv.Itoa(p.cfg.MaxInstallment),
		"user_name":         req.UserName,
		"user_address":      req.UserAddress,
		"user_phone":        req.UserPhone,
		"merchant_ok_url":   p.cfg.OkURL,
		"merchant_fail_url": p.cfg.FailURL,
		"timeout_limit":     strconv.Itoa(p.cfg.TimeoutLimit),
		"currency":          gatewayCurrency(req.Currency),
		"test_mode":         boolFlag(p.cfg.TestMode),
		"lang":              p.cfg.Lang,
	}
	form["paytr_token"] = p.tokenSignature(form)

	// The audit copy drops the token, the basket body and the shopper's name
	// and address, and keeps contact details only in masked form.
	sanitized := make(map[string]any, len(form))
	for k, v := range form {
		switch k {
		case "paytr_token", "user_basket", "user_name", "user_address":
			continue
		case "email":
			v = maskEmail(v)
		case "user_phone":
			v = maskPhone(v)
		case "user_ip":
			v = maskIP(v)
		}
		sanitized[k] = v
	}
	sanitized["basket_items"] = len(req.Basket)

	return &SignedRequest{Form: form, sanitized: sanitized}, nil
}

func (p *PayTRProvider) SubmitTokenRequest(ctx context.Context, req *SignedRequest) (*TokenResult, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(req.Form).
		Post(p.cfg.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("paytr: token request failed: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &RejectedError{
			Reason:     fmt.Sprintf("unexpected status %d", resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			RawBody:    string(body),
		}
	}

	var parsed payTRTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RejectedError{
			Reason:     "malformed gateway response",
			StatusCode: resp.StatusCode(),
			RawBody:    string(body),
		}
	}

	if parsed.Status != "success" || parsed.Token == "" {
		reason := parsed.Reason
		if reason == "" {
			reason = "token request was not accepted"
		}
		return nil, &RejectedError{Reason: reason, StatusCode: resp.StatusCode(), RawBody: string(body)}
	}

	return &TokenResult{
		Token:     parsed.Token,
		IframeURL: strings.TrimRight(p.cfg.IframeBaseURL, "/") + "/" + parsed.Token,
	}, nil
}

func (p *PayTRProvider) VerifyCallback(n *models.CallbackNotification) CallbackVerification {
	expected := p.CallbackSignature(n.MerchantOID, n.Status, n.TotalAmount)
	return CallbackVerification{
		Valid:    p.signaturesEqual(expected, n.Hash),
		Expected: expected,
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
