// Package server implements the WebSocket chat server with its in-band
// exchange rates command.
//
// The implementation is organized into specialized files for configuration,
// the client registry (Hub), per-connection pumps, message dispatch, the
// exchange command, routing, and HTTP handlers.
package server
