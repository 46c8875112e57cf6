package services

import "errors"

var (
	// ErrInvalidInput is returned for values outside their documented range
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyConfig is returned when there is nothing to export or save
	ErrEmptyConfig = errors.New("config is empty")
	// ErrInvalidConfigJSON is returned when a config body is not valid JSON
	ErrInvalidConfigJSON = errors.New("config is not valid JSON")
	// ErrArkDataNotFound is returned when the game data file is missing
	ErrArkDataNotFound = errors.New("ark data file not found")
	// ErrArkDataInvalid is returned when the game data file is not a JSON object
	ErrArkDataInvalid = errors.New("ark data file is not a JSON object")
)

// EventPublisher pushes events to connected front ends
type EventPublisher interface {
	Broadcast(messageType string, data interface{})
}

// Event types published by the services
const (
	EventLicenseState = "license:state"
	EventAutosave     = "config:autosave"
	EventConfigSaved  = "config:saved"
	EventExport       = "export:complete"
)

type discardEvents struct{}

func (discardEvents) Broadcast(string, interface{}) {}

func eventsOrDiscard(p EventPublisher) EventPublisher {
	if p == nil {
		return discardEvents{}
	}
	return p
}
