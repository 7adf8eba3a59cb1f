package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Try runs f and converts a panic raised by it into an error of type *panics.ErrRecovered.
// It returns nil when f returns normally.
func Try(f func()) error {
	var c panics.Catcher
	c.Try(f)
	if r := c.Recovered(); r != nil {
		return r.AsError()
	}
	return nil
}

// Report runs f and passes a recovered panic to onError.
// A nil onError discards the panic.
func Report(f func(), onError func(error)) {
	if err := Try(f); err != nil && onError != nil {
		onError(err)
	}
}
