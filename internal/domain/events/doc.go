// Package events defines the notifications the provider emits and the bus
// that fans them out to subscribers.
//
// Each subscriber owns a buffered channel. Ordinary events never block and
// are dropped and counted when they do not fit; the tail of every queue is
// kept for install-completed and install-failed, which wait briefly for
// room before giving up. Events for one app id reach a subscriber in emit
// order.
package events
