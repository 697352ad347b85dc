// Package api defines the wire contract between an event-driven transport
// and the relais handler chain.
//
// A transport describes each connection with a [Scope], delivers incoming
// [Event] records through a [ReceiveFunc], and accepts outgoing ones through
// a [SendFunc]. [Conn] bundles the three for hand-off to a handler. Three
// connection types exist: request/response ([TypeRequest]), bidirectional
// message streams ([TypeMessage]), and the process lifecycle channel
// ([TypeLifecycle]).
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Events are in-memory records passed by value between the
// transport and the chain; they are not a serialization format.
//
// Core types:
//   - [Scope]: immutable per-connection metadata snapshot
//   - [Event]: tagged record exchanged through receive and send
//   - [Conn]: scope plus the two event operations of one connection
//   - [DecodeError]: payload decode failure carrying its decode step
package api
