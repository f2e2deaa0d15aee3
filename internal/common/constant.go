// Package common contains shared constants and sentinel errors used across
// FieldSync components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access
// token on outbound requests to the backend.
const AuthorizationHeaderName = "Authorization"
