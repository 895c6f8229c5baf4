// Package middleware provides HTTP middleware for the thumbnailer API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Request ID propagation via X-Request-ID
//   - Panic recovery with a JSON error body
//   - Prometheus request metrics keyed by route template
package middleware
