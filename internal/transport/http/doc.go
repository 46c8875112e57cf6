// Package http implements the command API the front end drives.
//
// Handlers are thin: they decode and validate the request, call a service,
// and render either JSON or an RFC 7807 problem. Domain errors are mapped to
// HTTP statuses in one place (mapError) so every route reports them the same
// way.
package http
