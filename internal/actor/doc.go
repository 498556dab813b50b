// Package actor is a small in-process actor runtime.
//
// Every actor owns its state and processes one message at a time on its own
// goroutine. Callers talk to an actor only through request/reply calls
// resolved by address through a Directory. A call suspends the caller until
// the reply arrives, so a single update can unwind through a long chain of
// actors before the original handler completes.
//
// Calls carry the chain of actors whose handlers are suspended on the current
// call path. When a call targets an actor already on that chain, the handler
// runs inline on the calling goroutine: the target is parked waiting for this
// very chain, so its state is not touched concurrently and the re-entrant
// call cannot deadlock on its own mailbox.
package actor
