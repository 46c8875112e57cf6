package license

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the expiry format inside a license key
const DateLayout = "20060102"

const fieldSeparator = "|"

// Token is a decoded license key
type Token struct {
	DeviceID  string
	ExpiresOn time.Time // UTC midnight of the last valid day
	Nonce     string
	Signature string // base64 of the HMAC-SHA256 tag
}

// signedPayload is the byte sequence the signature covers
func (t Token) signedPayload() []byte {
	return []byte(strings.Join([]string{t.DeviceID, t.ExpiresOn.Format(DateLayout), t.Nonce}, fieldSeparator))
}

// Encode renders the token in wire form
func (t Token) Encode() string {
	plain := strings.Join([]string{t.DeviceID, t.ExpiresOn.Format(DateLayout), t.Nonce, t.Signature}, fieldSeparator)
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// Decode parses a license key without checking its signature. raw is decoded
// as given; surrounding whitespace is malformed encoding. Errors wrap
// ErrMalformedEncoding or ErrWrongFieldCount.
func Decode(raw string) (Token, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if !utf8.Valid(data) {
		return Token{}, fmt.Errorf("%w: not UTF-8", ErrMalformedEncoding)
	}

	fields := strings.Split(string(data), fieldSeparator)
	if len(fields) != 4 {
		return Token{}, fmt.Errorf("%w: got %d, want 4", ErrWrongFieldCount, len(fields))
	}

	expires, err := ParseDate(fields[1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	return Token{
		DeviceID:  fields[0],
		ExpiresOn: expires,
		Nonce:     fields[2],
		Signature: fields[3],
	}, nil
}

// ParseDate parses a YYYYMMDD calendar date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q is not YYYYMMDD", s)
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// CalendarDate truncates t to its calendar date in t's own location,
// expressed as UTC midnight so dates compare by value.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
