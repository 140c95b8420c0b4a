package providers

import (
	"context"
	"fmt"

	"github.com/Badr070118/lupeti-project-sub000/models"
)

// PaymentProvider defines the interface a hosted-payment gateway integration
// must implement.
type PaymentProvider interface {
	Name() string

	// BuildTokenRequest assembles and signs the form posted to the gateway's
	// token endpoint. It performs no I/O.
	BuildTokenRequest(req TokenRequest) (*SignedRequest, error)

	// SubmitTokenRequest posts a signed request and returns the payment page
	// token. A gateway refusal is reported as *RejectedError.
	SubmitTokenRequest(ctx context.Context, req *SignedRequest) (*TokenResult, error)

	// VerifyCallback recomputes the notification signature.
	VerifyCallback(n *models.CallbackNotification) CallbackVerification
}

// BasketItem is one line of the basket shown on the gateway's payment page.
type BasketItem struct {
	Title     string
	UnitPrice int64
	Quantity  int
}

// TokenRequest carries everything the gateway needs to open a payment page.
type TokenRequest struct {
	MerchantOID string
	UserIP      string
	Email       string
	UserName    string
	UserAddress string
	UserPhone   string
	Amount      int64
	Currency    string
	Basket      []BasketItem
}

// SignedRequest is the ready-to-send form plus the values safe to audit.
type SignedRequest struct {
	Form      map[string]string
	sanitized map[string]any
}

// Sanitized returns the request without secrets, the token, the basket body
// or unmasked shopper details.
func (r *SignedRequest) Sanitized() map[string]any {
	out := make(map[string]any, len(r.sanitized))
	for k, v := range r.sanitized {
		out[k] = v
	}
	return out
}

type TokenResult struct {
	Token     string
	IframeURL string
}

type CallbackVerification struct {
	Valid    bool
	Expected string
}

// RejectedError reports a non-success answer from the gateway token endpoint.
type RejectedError struct {
	Reason     string
	StatusCode int
	RawBody    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request (HTTP %d): %s", e.StatusCode, e.Reason)
}
