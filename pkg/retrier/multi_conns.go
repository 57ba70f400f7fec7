package retrier

import "fmt"

// RetrierOpts configures MultiConnects. Count is the number of retries per
// connection and Interval the pause between them in seconds.
type RetrierOpts struct {
	Count    uint
	Interval uint
}

// MultiConnects opens count independent connections with connFunc, for
// components that must not share one (the broker publisher and consumer).
// A nil retrierOpts means a single attempt per connection.
//
// On failure the connections opened so far are passed to release, when it
// is not nil, and the error is returned.
//
// Example Usage:
//
//	conns, err := retrier.MultiConnects(2, dial, &retrier.RetrierOpts{Count: 3, Interval: 1}, closeConn)
func MultiConnects[T any](count uint8, connFunc func() (T, error), retrierOpts *RetrierOpts, release func(T)) ([]T, error) {
	conns := make([]T, 0, count)

	for i := range int(count) {
		var (
			conn T
			err  error
		)

		if retrierOpts != nil {
			conn, err = Connect(uint8(retrierOpts.Count), retrierOpts.Interval, connFunc)
		} else {
			conn, err = connFunc()
		}

		if err != nil {
			if release != nil {
				for _, c := range conns {
					release(c)
				}
			}
			return nil, fmt.Errorf("connection %d of %d: %w", i+1, count, err)
		}

		conns = append(conns, conn)
	}

	return conns, nil
}
