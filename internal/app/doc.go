// Package app wires the configuration, storage, license session, services
// and HTTP surface into one Application and runs it until it is told to
// stop.
package app
