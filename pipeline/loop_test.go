package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/inference"
)

type fakeConfig struct {
	downscaleThreshold int
}

func (c *fakeConfig) GetModeMaxShutdownTime() int { return 1 }
func (c *fakeConfig) GetSource() string           { return "fake" }
func (c *fakeConfig) GetFlip() bool               { return false }
func (c *fakeConfig) GetTargetFPS() int           { return 30 }
func (c *fakeConfig) GetSkipFirstFrames() int     { return 0 }
func (c *fakeConfig) GetDisplayMode() string      { return "popup" }
func (c *fakeConfig) GetMJPEGAddress() string     { return ":0" }
func (c *fakeConfig) GetDownscaleThreshold() int {
	if c.downscaleThreshold == 0 {
		return 720
	}
	return c.downscaleThreshold
}
func (c *fakeConfig) GetPerfWindowCapacity() int { return 200 }
func (c *fakeConfig) GetModelPath() string       { return "" }
func (c *fakeConfig) GetModelConfigPath() string { return "" }
func (c *fakeConfig) GetModelInputShape() model.Shape {
	return model.Shape{N: 1, C: 3, H: 224, W: 224}
}
func (c *fakeConfig) GetModelBackend() string  { return "default" }
func (c *fakeConfig) GetModelTarget() string   { return "cpu" }
func (c *fakeConfig) GetReportsFolder() string { return "" }
func (c *fakeConfig) GetLatencyLogging() bool  { return false }
func (c *fakeConfig) GetBenchFrames() int      { return 0 }

type fakeSource struct {
	maxFrames int
	rows      int
	cols      int
	startErr  error

	nextCalls int
	frames    int
	stops     int
}

func (s *fakeSource) Start() error {
	return s.startErr
}

func (s *fakeSource) Next() (gocv.Mat, error) {
	s.nextCalls++
	if s.frames >= s.maxFrames {
		return gocv.Mat{}, model.ErrEndOfStream
	}
	s.frames++
	rows, cols := s.rows, s.cols
	if rows == 0 {
		rows, cols = 480, 640
	}
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), rows, cols, gocv.MatTypeCV8UC3), nil
}

func (s *fakeSource) Stop() {
	s.stops++
}

type recordingSink struct {
	cancelAt   int // request a user stop on this present (1-based), 0 = never
	presentErr error

	presents int
	closes   int
	lastRows int
	lastCols int
}

func (s *recordingSink) Open() error {
	return nil
}

func (s *recordingSink) Present(frame gocv.Mat) (bool, error) {
	if s.presentErr != nil {
		return false, s.presentErr
	}
	s.presents++
	s.lastRows = frame.Rows()
	s.lastCols = frame.Cols()
	return s.cancelAt > 0 && s.presents == s.cancelAt, nil
}

func (s *recordingSink) Close() {
	s.closes++
}

type failingInvoker struct {
	invokes int
}

func (i *failingInvoker) InputShape() model.Shape {
	return model.Shape{N: 1, C: 3, H: 224, W: 224}
}

func (i *failingInvoker) Invoke(_ gocv.Mat) (gocv.Mat, error) {
	i.invokes++
	return gocv.Mat{}, fmt.Errorf("%w: device fault", model.ErrInferenceFailure)
}

func (i *failingInvoker) Close() {
}

func newTestLoop(src *fakeSource, snk *recordingSink, invoker inference.IService) *Loop {
	return New(&fakeConfig{}, src, snk, invoker, nil, nil)
}

func TestLoopProcessesUntilEndOfStream(t *testing.T) {
	src := &fakeSource{maxFrames: 3}
	snk := &recordingSink{}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Equal(t, 3, snk.presents)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)
}

func TestLoopStopsOnSinkCancelSignal(t *testing.T) {
	src := &fakeSource{maxFrames: 100}
	snk := &recordingSink{cancelAt: 2}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	statsStream := make(chan interface{}, 10)
	loop := New(&fakeConfig{}, src, snk, invoker, statsStream, nil)
	status, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, status)
	assert.Equal(t, 2, snk.presents)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)

	// The frame whose present carried the stop signal still counts.
	report, ok := (<-statsStream).(model.RunReport)
	require.True(t, ok)
	assert.Equal(t, 2, report.Frames)
	assert.Equal(t, "cancelled", report.Status)
}

func TestLoopSurfacesInferenceFault(t *testing.T) {
	src := &fakeSource{maxFrames: 100}
	snk := &recordingSink{}
	invoker := &failingInvoker{}

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(context.Background())

	assert.Equal(t, model.StatusFailed, status)
	assert.ErrorIs(t, err, model.ErrInferenceFailure)
	// Fault on the first frame: no further fetches.
	assert.Equal(t, 1, src.nextCalls)
	assert.Equal(t, 0, snk.presents)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)
}

func TestLoopSurfacesSourceUnavailable(t *testing.T) {
	src := &fakeSource{startErr: fmt.Errorf("%w: no such device", model.ErrSourceUnavailable)}
	snk := &recordingSink{}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(context.Background())

	assert.Equal(t, model.StatusFailed, status)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
	assert.Equal(t, 0, src.nextCalls)
	// Cleanup still runs on the failed path.
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)
}

func TestLoopSurfacesSinkFailure(t *testing.T) {
	src := &fakeSource{maxFrames: 100}
	snk := &recordingSink{presentErr: fmt.Errorf("%w: encode failed", model.ErrSinkFailure)}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(context.Background())

	assert.Equal(t, model.StatusFailed, status)
	assert.ErrorIs(t, err, model.ErrSinkFailure)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)
}

func TestLoopTreatsCancelledContextAsStop(t *testing.T) {
	src := &fakeSource{maxFrames: 100}
	snk := &recordingSink{}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	ctx, canxFn := context.WithCancel(context.Background())
	canxFn()

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, status)
	assert.Equal(t, 0, snk.presents)
	assert.Equal(t, 1, src.stops)
	assert.Equal(t, 1, snk.closes)
}

func TestLoopDownscalesOversizedFrames(t *testing.T) {
	src := &fakeSource{maxFrames: 1, rows: 1080, cols: 1920}
	snk := &recordingSink{}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	loop := newTestLoop(src, snk, invoker)
	status, err := loop.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)
	assert.Equal(t, 405, snk.lastRows)
	assert.Equal(t, 720, snk.lastCols)
}

func TestOverlayRendersIntoRedChannel(t *testing.T) {
	loop := newTestLoop(&fakeSource{}, &recordingSink{}, inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224}))
	loop.perf = NewPerfTracker(200)
	loop.perf.Record(0.010)

	// RGB frame: the banner must land in channel 0 (red), not blue.
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	loop.overlay(&img)

	sum := img.Sum()
	assert.Greater(t, sum.Val1, 0.0) // red
	assert.Equal(t, 0.0, sum.Val3)   // blue untouched
}

func TestLoopEmitsRunReport(t *testing.T) {
	src := &fakeSource{maxFrames: 2}
	snk := &recordingSink{}
	invoker := inference.NewIdentity(model.Shape{N: 1, C: 3, H: 224, W: 224})

	statsStream := make(chan interface{}, 10)
	loop := New(&fakeConfig{}, src, snk, invoker, statsStream, nil)

	status, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, status)

	report, ok := (<-statsStream).(model.RunReport)
	require.True(t, ok)
	assert.Equal(t, 2, report.Frames)
	assert.Equal(t, "completed", report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Greater(t, report.MeanInferenceMillis, 0.0)
}
