package source

import "gocv.io/x/gocv"

// IService abstracts a live or file-backed frame producer.
//
// Next returns frames in RGB channel order. Normal exhaustion is
// signalled with model.ErrEndOfStream, which is a termination condition
// and not a failure. Stop is idempotent and safe to call even when
// Start failed partway.
type IService interface {
	Start() error
	Next() (gocv.Mat, error)
	Stop()
}
