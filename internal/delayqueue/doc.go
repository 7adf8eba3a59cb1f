// Package delayqueue provides a deadline-ordered priority queue with a
// non-blocking "pop if due" operation.
//
// Unlike a timer-driven delay queue it never parks the caller: PollDue either
// returns an item whose deadline has passed or returns immediately. Items can
// be repositioned (Update) or dropped (Remove) in O(log n).
package delayqueue
