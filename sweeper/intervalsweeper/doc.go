// Package intervalsweeper cleans up expiring maps periodically from a background goroutine.
package intervalsweeper
