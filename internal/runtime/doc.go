// Package runtime hosts the core of the gravity realtime bus: the delivery
// engine (durable log append + best-effort broadcast with asymmetric
// fallback), the event bus (refcounted channel subscriptions with
// panic-isolated dispatch), the typed per-kind publishers, and the container
// that wires them together over a pluggable transport.
//
// The stable public surface is re-exported from the repository root; see the
// gravity package.
package runtime
