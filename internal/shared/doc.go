// Package shared holds helpers used by more than one package.
//
// testutil carries the test-only pieces: a capturing slog handler that lets
// tests assert on what was logged, including that secrets were not.
package shared
