// Package security derives the stable device identifier that licenses are
// bound to.
//
// The identifier is a UUIDv5 (OID namespace) over the lowercase hex SHA-256
// of a fixed, ordered set of host signals. A signal the host cannot provide
// is skipped, so Compute never fails. Other packages treat the result as an
// opaque string.
package security
