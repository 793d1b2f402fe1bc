// Package network keeps track of every connection attached to the relay.
//
// A Network owns four structures, each behind its own lock:
//
//   - Table: an arena of live connections addressed by generation-checked Refs.
//   - NodeRegistry: username to Ref, first come first served.
//   - RoomRegistry: room name to an ordered member list of Refs.
//   - PushStore: username to an opaque push subscription descriptor.
//
// Registries never hold a connection directly. A Ref whose connection has
// been detached resolves to nothing, so lookups and room iteration silently
// skip connections that already went away.
package network
