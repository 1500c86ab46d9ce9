package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is the maximum accepted age of a webhook timestamp.
// Older events are rejected to limit replay.
const DefaultTolerance = 5 * time.Minute

// Webhook signature verification failures. Both map to a 400-class
// rejection before any payload processing.
var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// VerifySignature checks the gateway's signature scheme: the header carries
// "t=<unix>,v1=<hex hmac>" where the HMAC-SHA256 is computed over
// "<unix>.<payload>" with the shared webhook secret. Multiple v1 entries
// are accepted if any matches; comparison is constant-time.
func VerifySignature(payload []byte, header string, secret []byte, now time.Time, tolerance time.Duration) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var (
		timestamp  string
		signatures [][]byte
	)
	for part := range strings.SplitSeq(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			sig, err := hex.DecodeString(v)
			if err == nil {
				signatures = append(signatures, sig)
			}
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return ErrStaleTimestamp
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		if subtle.ConstantTimeCompare(expected, sig) == 1 {
			return nil
		}
	}
	return ErrInvalidSignature
}

// SignPayload produces a valid signature header for the given payload.
// Used by tests and local webhook replay tooling.
func SignPayload(payload []byte, secret []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return "t=" + ts + ",v1=" + hex.EncodeToString(computeSignature(ts, payload, secret))
}

func computeSignature(timestamp string, payload, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
