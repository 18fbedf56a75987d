package xdccget

import (
	"errors"
	"fmt"

	"github.com/opd-ai/xdccget/file"
)

// Summary reports the outcome of a session.
type Summary struct {
	SessionID string
	Requested int
	Results   []file.Result
}

// Completed returns the number of transfers that finished successfully.
func (s *Summary) Completed() int {
	n := 0
	for _, r := range s.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of transfers that ended in error.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Completed()
}

// Err joins the errors of all failed transfers, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if !r.OK() {
			errs = append(errs, fmt.Errorf("transfer %d (%s): %w", r.ID, r.FileName, r.Err))
		}
	}
	return errors.Join(errs...)
}
