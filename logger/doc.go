// Package logger provides structured logging for cbkit clients using
// zerolog.
//
// Every client accepts an injectable *logger.Logger. When none is given,
// clients fall back to Nop(), which discards everything. Debug-mode
// request/response dumps always pass through Redact so that API
// credentials never reach a sink in plaintext.
//
// # Usage
//
//	log := logger.NewDefault("cbkit").WithComponent("session")
//	log.Debug("request sent", logger.Fields("method", "GET", "path", p))
package logger
