// Package valuestore provides the value table of an expiring map.
//
// The store holds committed key/value associations and nothing else: it has
// no notion of time. It can be distributed across multiple buckets, each with
// its own lock, for improved concurrency. Bucket selection uses a key hash
// that can be customized with WithKeyHash.
package valuestore
