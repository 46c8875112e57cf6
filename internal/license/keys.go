package license

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"
)

// embeddedSecret is shared with the issuer. Release builds replace it with
// -ldflags "-X github.com/jonxmitchell/ark-asa-shop-config-generator/internal/license.embeddedSecret=...".
var embeddedSecret = "ark-shop-config-generator/dev-signing-secret/7f3c9a1e"

const keyInfo = "ark-shop-config-generator license mac v1"

// Key is the HMAC key that signs license keys. It never prints its bytes.
type Key struct {
	b []byte
}

var (
	defaultKeyOnce sync.Once
	defaultKey     Key
)

// DeriveKey expands secret into a 32-byte MAC key with HKDF-SHA256
func DeriveKey(secret []byte) Key {
	r := hkdf.New(sha256.New, secret, nil, []byte(keyInfo))
	b := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, b); err != nil {
		// hkdf only fails after 255*32 bytes
		panic(err)
	}
	return Key{b: b}
}

// DefaultKey returns the key derived from the embedded secret
func DefaultKey() Key {
	defaultKeyOnce.Do(func() {
		defaultKey = DeriveKey([]byte(embeddedSecret))
	})
	return defaultKey
}

// String keeps the key out of formatted output
func (Key) String() string { return "[redacted]" }

// LogValue keeps the key out of structured logs
func (Key) LogValue() slog.Value { return slog.StringValue("[redacted]") }

func (k Key) mac(payload []byte) []byte {
	m := hmac.New(sha256.New, k.b)
	m.Write(payload)
	return m.Sum(nil)
}

// Sign builds a signed token for device that is valid through expiresOn
func Sign(key Key, deviceID string, expiresOn time.Time, nonce string) Token {
	t := Token{
		DeviceID:  deviceID,
		ExpiresOn: CalendarDate(expiresOn),
		Nonce:     nonce,
	}
	t.Signature = base64.StdEncoding.EncodeToString(key.mac(t.signedPayload()))
	return t
}
