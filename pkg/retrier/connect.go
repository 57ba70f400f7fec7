// Package retrier repeats fallible startup and best-effort operations with a
// fixed pause between attempts.
package retrier

import "time"

// sleepUnit scales the sleep argument; tests shrink it.
var sleepUnit = time.Second

// Connect calls connector until it succeeds or the attempts run out.
//
// Parameters:
//   - retry: number of retries after the first attempt (0 means exactly one attempt)
//   - sleep: pause between attempts in seconds
//   - connector: opens the connection
//
// Returns the first connection that opened, or the zero value and the error
// of the last attempt.
//
// Example Usage:
//
//	db, err := retrier.Connect(3, 2, func() (*gorm.DB, error) {
//	    return repository.Open(cfg.DB.Driver, cfg.DB.DSN)
//	})
func Connect[T any](retry uint8, sleep uint, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for attempt := 0; attempt <= int(retry); attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(sleep) * sleepUnit)
		}

		out, err = connector()
		if err == nil {
			return out, nil
		}
	}

	var zero T
	return zero, err
}

// Do runs fn with the same policy as Connect, for operations without a
// result such as cache writes.
func Do(retry uint8, sleep uint, fn func() error) error {
	_, err := Connect(retry, sleep, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
