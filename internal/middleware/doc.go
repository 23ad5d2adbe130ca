// Package middleware provides HTTP middleware for the site server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with low-cardinality path labels
//   - Gzip compression that bypasses media delivery and WebSockets
package middleware
