// Package errors provides the structured error type used by the apidoc
// server.
//
// # Categories
//
//   - Transient: the server is busy or timed out; retry may succeed
//   - Permanent: the request is wrong (not found, invalid input, custom message)
//   - Internal: i/o, serialization, panics and anything unexpected
//
// # Usage
//
// Create an error with a code:
//
//	err := errors.New(errors.ErrCodeNotFound, "no route for /missing")
//
// Wrap a lower-level error, keeping its code if it already has one:
//
//	wrapped := errors.Wrap(err, "rendering openapi document")
//
// Render it in a handler:
//
//	errors.WriteHTTP(w, err)
//
// Internal errors reach the client as a bare status code. Their details
// are available through MarshalJSON for logs.
package errors
