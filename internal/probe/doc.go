// Package probe runs one trigger/reply exchange per target over UDP.
//
// Ownership boundary:
// - target parsing and IPv4 resolution
// - socket lifetime, send count, reply timeout
// - outcome classification (supported, no response, transport error, malformed)
package probe
