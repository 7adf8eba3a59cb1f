// Package expiringmap provides a concurrent map whose entries expire after a
// per-entry time to live.
//
// Expiry is discovered lazily: each operation first drains the expiry queue of
// entries that are already due, so no background goroutine is required. Reading
// an entry with Get renews it. For bounded memory under idle load, the map can
// be swept periodically with the intervalsweeper package.
//
// Bulk insertion and live views (PutAll, KeySet, Values, EntrySet) are not
// supported because a view over a map that mutates itself on every access has
// no well-defined contents; Snapshot returns an immutable copy instead.
package expiringmap
