// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing a console encoding to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Every step of an update run receives a context and extracts the logger
// from it, so the step name travels with each message. Stdout stays free
// for reports meant to be read or piped by the user.
package logger
