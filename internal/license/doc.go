// Package license binds the application to one device with an offline,
// signed, time-limited license key.
//
// A key is base64 of "device_id|YYYYMMDD|nonce|signature", where signature is
// base64 of an HMAC-SHA256 tag over the first three fields. Verify checks, in
// order: decoding, device match, expiry (inclusive of the expiry day) and
// signature. Session holds the process-wide licensed flag, which only ever
// moves from unlicensed to licensed.
package license
