// Package generation provides implementations of the interviewer turn
// generator: an HTTP client for a remote generation service and a
// deterministic scripted interviewer used for local runs and tests.
package generation
