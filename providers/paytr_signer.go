package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// sign returns base64(HMAC-SHA256(key, concatenation of parts)).
func sign(key string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(strings.Join(parts, "")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// tokenSignature covers the fields of a token request in gateway order.
func (p *PayTRProvider) tokenSignature(f map[string]string) string {
	return sign(p.cfg.MerchantKey,
		f["merchant_id"],
		f["user_ip"],
		f["merchant_oid"],
		f["email"],
		f["payment_amount"],
		f["user_basket"],
		f["no_installment"],
		f["max_installment"],
		f["currency"],
		f["test_mode"],
		p.cfg.MerchantSalt,
	)
}

// CallbackSignature is the hash the gateway attaches to a notification.
func (p *PayTRProvider) CallbackSignature(merchantOID, status, totalAmount string) string {
	return sign(p.cfg.MerchantKey, merchantOID, p.cfg.MerchantSalt, status, totalAmount)
}

func (p *PayTRProvider) signaturesEqual(expected, received string) bool {
	return hmac.Equal([]byte(expected), []byte(received))
}
