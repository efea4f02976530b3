// Package gravity is a realtime messaging facade for AI providers. A provider
// publishes typed messages (text, streaming chunks, tool output, progress,
// UI cards, workflow events) onto a shared broadcast channel, and every
// message is additionally appended to a durable log so late consumers can
// replay a conversation. It reads the target transport (Redis, NATS, or Go
// channels) from Config, pools connections per endpoint, and validates each
// envelope before anything touches the wire.
//
// The core surface is small: fill Config, create a Container (or use the
// process-wide Default), grab a Publisher for the kind you emit, and publish.
// Consumers subscribe through the container's Bus and receive decoded
// messages; the underlying transport subscription is shared across handlers
// on the same channel. See README.md for a copy/paste quick start snippet.
//
// # Transports
//
// Three transports are available out of the box:
//   - redis: Streams for the durable log, pub/sub for broadcast, pipelined
//     batches in one round trip
//   - nats: JetStream durable log with core NATS broadcast
//   - channel: In-memory transport for testing and local development
//
// # Delivery semantics
//
// Delivery is dual-path and deliberately asymmetric: the durable log append
// happens first, but its failure is non-fatal and degrades the publish to
// broadcast-only. Only a failed broadcast fails the publish. Producers keep
// working through a log outage; replay has a gap, live consumers do not.
package gravity
