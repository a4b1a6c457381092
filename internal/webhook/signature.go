package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrSignatureExpired  = errors.New("webhook signature expired")
)

// Sign returns "sha256=<hex>" over "<timestamp>.<payload>". Binding the
// timestamp lets receivers reject replayed deliveries.
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func Verify(secret string, timestamp int64, payload []byte, signature string) bool {
	expectedSignature := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// VerifyFresh checks the signature and that timestamp is within maxAge of now.
func VerifyFresh(secret string, timestamp int64, payload []byte, signature string, now time.Time, maxAge time.Duration) error {
	if !Verify(secret, timestamp, payload, signature) {
		return ErrSignatureMismatch
	}
	age := now.Sub(time.Unix(timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > maxAge {
		return ErrSignatureExpired
	}
	return nil
}
