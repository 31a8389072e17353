// Package api adapts the quiz service to HTTP: it decodes and validates
// requests, reads the caller placed in the context by the auth middleware,
// and maps service errors to status codes and safe messages.
package api
