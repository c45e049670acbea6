// Package domain contains the core business entities of the service: the
// profile extracted from a self-introduction video and its invariants.
// It has no dependencies on transport or model providers.
package domain
