package license

const maskPrefix = 8

// MaskKey shortens a license key for logs and API responses. The prefix is
// counted in runes so a rejected non-ASCII key is never cut mid-character.
func MaskKey(key string) string {
	n := 0
	for i := range key {
		if n == maskPrefix {
			return key[:i] + "****"
		}
		n++
	}
	return "****"
}
