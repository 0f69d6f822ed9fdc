package retrier

import (
	"context"
	"fmt"

	"github.com/Koyo-os/docusurvey/pkg/logger"
)

// MultiConnects opens count independent connections with the same retry
// policy. On failure the connections opened so far are handed to release
// and the error is returned.
func MultiConnects[T any](ctx context.Context, name string, count int, opts RetrierOpts, log *logger.Logger, connFunc func() (T, error), release func(T)) ([]T, error) {
	conns := make([]T, 0, count)

	for i := range count {
		conn, err := Connect(ctx, fmt.Sprintf("%s#%d", name, i+1), opts, log, connFunc)
		if err != nil {
			if release != nil {
				for _, c := range conns {
					release(c)
				}
			}
			return nil, err
		}
		conns = append(conns, conn)
	}

	return conns, nil
}
