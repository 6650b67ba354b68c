package source

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

type syntheticService struct {
	MaxFrames int
	Rows      int
	Cols      int

	started bool
	stopped bool
	frames  int
}

// NewSynthetic returns a source that generates 480x640 RGB frames with
// a per-frame varying fill. maxFrames <= 0 means unbounded; otherwise
// the source ends with model.ErrEndOfStream after that many frames.
// Used by bench mode and tests; no capture hardware involved.
func NewSynthetic(maxFrames int) IService {
	return &syntheticService{
		MaxFrames: maxFrames,
		Rows:      480,
		Cols:      640,
	}
}

func (svc *syntheticService) Start() error {
	svc.started = true
	return nil
}

func (svc *syntheticService) Next() (gocv.Mat, error) {
	if !svc.started || svc.stopped {
		return gocv.Mat{}, fmt.Errorf("%w: source not started", model.ErrSourceUnavailable)
	}

	if svc.MaxFrames > 0 && svc.frames >= svc.MaxFrames {
		return gocv.Mat{}, model.ErrEndOfStream
	}

	// Cycle the fill color so consecutive frames differ.
	v := float64(svc.frames % 255)
	img := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(v, 255-v, float64(time.Now().Unix()%255), 0),
		svc.Rows, svc.Cols, gocv.MatTypeCV8UC3)

	svc.frames++
	return img, nil
}

func (svc *syntheticService) Stop() {
	svc.stopped = true
}
