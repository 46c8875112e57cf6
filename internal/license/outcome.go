package license

import "errors"

// Reason identifies why a license key was rejected. The zero value means the
// key was never verified and is not a pass; ReasonValid marks acceptance.
type Reason int

const (
	ReasonUnverified Reason = iota
	ReasonValid
	ReasonMalformedEncoding
	ReasonWrongFieldCount
	ReasonDeviceMismatch
	ReasonExpired
	ReasonBadSignature
)

// Verification failures
var (
	ErrUnverified        = errors.New("license key was not verified")
	ErrMalformedEncoding = errors.New("license key is not valid encoding")
	ErrWrongFieldCount   = errors.New("license key has the wrong number of fields")
	ErrDeviceMismatch    = errors.New("license key was issued for a different device")
	ErrExpired           = errors.New("license key has expired")
	ErrBadSignature      = errors.New("license key signature is invalid")
)

var reasonErrors = map[Reason]error{
	ReasonUnverified:        ErrUnverified,
	ReasonMalformedEncoding: ErrMalformedEncoding,
	ReasonWrongFieldCount:   ErrWrongFieldCount,
	ReasonDeviceMismatch:    ErrDeviceMismatch,
	ReasonExpired:           ErrExpired,
	ReasonBadSignature:      ErrBadSignature,
}

// String returns the machine-readable reason name
func (r Reason) String() string {
	switch r {
	case ReasonUnverified:
		return "unverified"
	case ReasonValid:
		return "valid"
	case ReasonMalformedEncoding:
		return "malformed_encoding"
	case ReasonWrongFieldCount:
		return "wrong_field_count"
	case ReasonDeviceMismatch:
		return "device_mismatch"
	case ReasonExpired:
		return "expired"
	case ReasonBadSignature:
		return "bad_signature"
	default:
		return "unknown"
	}
}

// Outcome is the result of verifying one license key. The zero Outcome is
// unverified and never Valid.
type Outcome struct {
	Reason Reason
}

// Valid reports whether the key was accepted
func (o Outcome) Valid() bool { return o.Reason == ReasonValid }

// Err returns the sentinel error for a rejected key, or nil when valid
func (o Outcome) Err() error {
	return reasonErrors[o.Reason]
}

// Message is the single user-facing rejection text for the outcome
func (o Outcome) Message() string {
	switch o.Reason {
	case ReasonValid:
		return "License is valid"
	case ReasonMalformedEncoding, ReasonWrongFieldCount:
		return "The license key is not in a recognised format. Check that it was copied completely."
	case ReasonDeviceMismatch:
		return "This license key was issued for a different device."
	case ReasonExpired:
		return "This license key has expired. Please obtain a new key."
	case ReasonBadSignature:
		return "This license key could not be verified. Please obtain a new key."
	case ReasonUnverified:
		return "The license key could not be checked. Please try again."
	default:
		return "The license key was rejected."
	}
}

func invalid(r Reason) Outcome { return Outcome{Reason: r} }

var accepted = Outcome{Reason: ReasonValid}

// reasonOf maps a decode error back to its reason
func reasonOf(err error) Reason {
	for r, sentinel := range reasonErrors {
		if r != ReasonUnverified && errors.Is(err, sentinel) {
			return r
		}
	}
	return ReasonMalformedEncoding
}
