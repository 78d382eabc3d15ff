// Package audit relays login, lockout and access events to a sink.
//
// [Dispatcher] buffers events and hands them to a [Sink] on one background
// goroutine. With DropIfFull set, a full buffer drops the event and counts
// it instead of blocking the login path.
//
// This package does not decide which events to emit; the engine does.
// It must not import goRealm or any sibling internal package.
package audit
