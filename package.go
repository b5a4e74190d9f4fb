// Package green lets an external cooperative scheduler take over the
// points where a database client would otherwise block its OS thread
// waiting for a socket to become ready.
//
// The client issues asynchronous network operations. Whenever such an
// operation reports that the socket is not ready yet, the networking
// layer asks the Registry whether cooperative ("green") mode is active
// and, if so, hands the wait to the registered Handler. The handler
// parks the calling flow of execution in whatever way its scheduler
// likes and returns once the operation should be retried.
//
// Key components:
//
//   - Registry: a single-slot holder for the current wait handler.
//     SetWaitHandler installs or clears it, Green reports whether one
//     is installed, Wait dispatches to it.
//
//   - Handler/WaitFunc: the contract a scheduler must satisfy. It
//     receives a Conn (the connection capability) and an optional
//     Cursor (the operation being waited on).
//
//   - Drive: the retry loop a networking layer runs around Conn.Poll,
//     dispatching a wait every time the socket is not ready.
//
//   - SelectWaiter: a reference handler that blocks the calling
//     goroutine on poll(2). Schedulers that multiplex many operations
//     onto one thread live elsewhere, see the coop package.
//
// A process-wide Registry is available through Default and the
// package-level SetWaitHandler, Green and Wait functions. Tests and
// embedders that need isolation create their own with NewRegistry and
// carry it in a context with WithRegistry.
package green
