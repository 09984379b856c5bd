// Package api handles incoming HTTP requests, request validation and
// response formatting for the cards API. Handlers translate JSON payloads
// into service calls and map domain error kinds to HTTP statuses; they hold
// no business rules of their own.
package api
