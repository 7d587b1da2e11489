// Package webhook verifies the authenticity and freshness of inbound
// webhook deliveries. A delivery is accepted only when all three checks
// hold: the HMAC signature matches the raw payload, the signed timestamp
// is within tolerance of the wall clock, and the decoded payload has the
// expected envelope shape. The checks are independent pure functions so
// callers can log the specific failure without leaking it to the sender.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how far a signed timestamp may drift from the wall
// clock before the delivery is considered a replay.
const DefaultTolerance = 5 * time.Minute

// ParseSignatureHeader splits a signature header of the form
// "t=<unix-seconds>,v1=<hex-hmac>" into its parts. Missing or malformed
// segments report ok=false; the header is never trusted beyond its shape.
func ParseSignatureHeader(header string) (timestamp int64, digest string, ok bool) {
	var haveTS, haveDigest bool
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			ts, err := strconv.ParseInt(part[len("t="):], 10, 64)
			if err != nil {
				return 0, "", false
			}
			timestamp = ts
			haveTS = true
		case strings.HasPrefix(part, "v1="):
			digest = part[len("v1="):]
			haveDigest = digest != ""
		}
	}
	if !haveTS || !haveDigest {
		return 0, "", false
	}
	return timestamp, digest, true
}

// ComputeSignature returns the hex HMAC-SHA256 of "<timestamp>.<rawBody>"
// under secret. It is the signing side of VerifySignature and is exported
// for test fixtures and outbound deliveries.
func ComputeSignature(rawBody []byte, timestamp int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header carries a valid HMAC-SHA256
// signature of rawBody under secret. The digest comparison is constant
// time. Malformed headers return false rather than an error.
//
// The signature covers the exact bytes received: any reserialization of
// the payload before verification invalidates it.
func VerifySignature(rawBody []byte, header, secret string) bool {
	timestamp, provided, ok := ParseSignatureHeader(header)
	if !ok {
		return false
	}

	expected := ComputeSignature(rawBody, timestamp, secret)
	return hmac.Equal([]byte(provided), []byte(expected))
}

// TimestampFresh reports whether the timestamp signed into header is within
// tolerance of now, inclusive at the boundary. Malformed headers are never
// fresh.
func TimestampFresh(header string, tolerance time.Duration, now time.Time) bool {
	timestamp, _, ok := ParseSignatureHeader(header)
	if !ok {
		return false
	}

	// Compare in whole seconds. Converting the drift to a time.Duration
	// would overflow for timestamps hundreds of years out, and the header
	// accepts any int64.
	nowSecs := now.Unix()
	drift := nowSecs - timestamp
	if timestamp > nowSecs {
		drift = timestamp - nowSecs
	}
	if drift < 0 {
		// The subtraction itself overflowed; the timestamp is nowhere
		// near fresh.
		return false
	}
	return drift <= int64(tolerance/time.Second)
}

// envelope mirrors the top-level fields every webhook payload must carry.
type envelope struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// ValidEnvelopeShape reports whether payload decodes to a JSON object with
// non-empty string fields "type" and "object" and a present "data" field.
// Shape validation is independent of signature validity and is required
// even when signature checks are bypassed in test environments.
func ValidEnvelopeShape(payload []byte) bool {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	return env.Type != "" && env.Object != "" && env.Data != nil
}
