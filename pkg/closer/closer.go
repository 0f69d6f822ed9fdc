package closer

import "errors"

type (
	Closer interface {
		Close() error
	}

	// CloserFunc adapts a plain function, e.g. a server shutdown.
	CloserFunc func() error

	CloserGroup struct {
		closers []Closer
	}
)

func (f CloserFunc) Close() error { return f() }

func NewCloserGroup(closers ...Closer) *CloserGroup {
	return &CloserGroup{
		closers: closers,
	}
}

// Add appends closers; nil values are skipped.
func (c *CloserGroup) Add(closers ...Closer) {
	for _, cl := range closers {
		if cl != nil {
			c.closers = append(c.closers, cl)
		}
	}
}

// Close closes everything in reverse order of registration and joins the
// errors. One failing closer does not stop the rest.
func (c *CloserGroup) Close() error {
	var errs []error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
