package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
)

func TestCaptureStopIsIdempotent(t *testing.T) {
	statsStream := make(chan interface{}, 10)
	svc := NewCapture(config.NewEnv(), statsStream)

	// Stop without Start, then again: no panic, no double release, and
	// no stats for a source that never started.
	svc.Stop()
	svc.Stop()

	assert.Empty(t, statsStream)
}

func TestCaptureStopAfterFailedStart(t *testing.T) {
	t.Setenv("SOURCE", "./no/such/clip.mp4")

	statsStream := make(chan interface{}, 10)
	svc := NewCapture(config.NewEnv(), statsStream)

	err := svc.Start()
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)

	svc.Stop()
	svc.Stop()

	assert.Empty(t, statsStream)
}

func TestCaptureNextBeforeStart(t *testing.T) {
	svc := NewCapture(config.NewEnv(), nil)

	_, err := svc.Next()
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}
