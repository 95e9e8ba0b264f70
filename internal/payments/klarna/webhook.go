package klarna

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotificationSignatureHeader carries the signed timestamp and digest of a
// fraud notification payload.
const NotificationSignatureHeader = "X-Notification-Signature"

// VerifyNotificationSignature validates a notification signature header of
// the form "t=<unix>,v1=<hex hmac>" against the raw payload. The signed
// message is "<timestamp>.<payload>" keyed with the shared webhook secret.
func VerifyNotificationSignature(payload []byte, header, secret string, tolerance time.Duration) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("webhook secret is required")
	}

	timestamp, signatures := parseSignatureHeader(header)
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("notification signature header is missing required fields")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid notification signature timestamp: %w", err)
	}

	if tolerance > 0 {
		diff := time.Now().Unix() - ts
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(tolerance.Seconds()) {
			return errors.New("notification signature timestamp outside tolerance")
		}
	}

	signedPayload := timestamp + "." + string(payload)
	expectedMAC := computeHMACSHA256([]byte(signedPayload), []byte(secret))

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expectedMAC) {
			return nil
		}
	}

	return errors.New("no matching notification signature found")
}

func parseSignatureHeader(header string) (string, []string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}

	var (
		timestamp  string
		signatures []string
	)

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			if sig := strings.TrimPrefix(part, "v1="); sig != "" {
				signatures = append(signatures, sig)
			}
		}
	}

	return timestamp, signatures
}

func computeHMACSHA256(message, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
