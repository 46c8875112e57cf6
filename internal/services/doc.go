// Package services holds the application logic behind each shell command.
// Handlers in internal/transport/http stay thin and delegate here.
package services
