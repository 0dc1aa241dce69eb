package analyzer

import "fmt"

// AcquisitionError reports that no working copy could be obtained. It is the
// only error that makes a run terminal.
type AcquisitionError struct {
	URL string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring %s: %v", e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
