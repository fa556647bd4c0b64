// Package protocol owns the probe outcome taxonomy shared by the codec and the prober.
//
// Ownership boundary:
// - packet: trigger construction and version negotiation parsing
// - sentinel errors that classify one probe exchange
package protocol
