// Package protocol owns the ADB host wire vocabulary.
//
// Ownership boundary:
// - host command tokens
// - request status word
// - typed protocol errors
package protocol
