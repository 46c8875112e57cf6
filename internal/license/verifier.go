package license

import (
	"crypto/hmac"
	"encoding/base64"
	"time"
)

// Verifier checks license keys against a device id and a calendar date. It
// holds no mutable state and reads no clock.
type Verifier struct {
	key Key
}

// NewVerifier creates a verifier for keys signed with key
func NewVerifier(key Key) *Verifier {
	return &Verifier{key: key}
}

// Verify reports whether raw is a valid key for deviceID on the given day
func (v *Verifier) Verify(raw, deviceID string, today time.Time) Outcome {
	_, outcome := v.Check(raw, deviceID, today)
	return outcome
}

// Check is Verify returning the decoded token as well. The token is the zero
// value when decoding fails.
//
// Checks short-circuit in this order: decoding, device id, expiry, signature.
func (v *Verifier) Check(raw, deviceID string, today time.Time) (Token, Outcome) {
	tok, err := Decode(raw)
	if err != nil {
		return Token{}, invalid(reasonOf(err))
	}

	if tok.DeviceID != deviceID {
		return tok, invalid(ReasonDeviceMismatch)
	}

	if CalendarDate(today).After(tok.ExpiresOn) {
		return tok, invalid(ReasonExpired)
	}

	want := base64.StdEncoding.EncodeToString(v.key.mac(tok.signedPayload()))
	if !hmac.Equal([]byte(want), []byte(tok.Signature)) {
		return tok, invalid(ReasonBadSignature)
	}

	return tok, accepted
}
