// Package expiry provides the per-key expiry bookkeeping of an expiring map.
//
// A Record describes one registration of a key: when it was created or last
// renewed, how long it lives, and whether it was expired explicitly. Records
// are versioned so that a sweep popping an old record of a key that has since
// been overwritten can tell it apart from the current one.
//
// A Registry maps every live key to its current Record.
package expiry
