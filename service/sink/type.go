package sink

import "gocv.io/x/gocv"

// IService is the display surface receiving finished frames.
//
// Present takes an RGB frame and returns true when the user requested a
// stop (e.g. ESC in popup mode). The sink does not keep references to
// the frame past the call. Close is idempotent.
type IService interface {
	Open() error
	Present(frame gocv.Mat) (bool, error)
	Close()
}
