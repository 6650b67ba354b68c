package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/inference"
	"github.com/artfilter/st-go/service/lgr"
	"github.com/artfilter/st-go/service/sink"
	"github.com/artfilter/st-go/service/source"
)

// Rotating journal of per-frame latencies, enabled via config.
var latencyJournal = &lumberjack.Logger{
	Filename:   "latency.log",
	MaxSize:    100, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}

const (
	overlayAnchorX = 20
	overlayAnchorY = 40
)

// Loop drives source -> preprocess -> inference -> postprocess ->
// telemetry -> sink, one frame at a time. It exclusively owns the
// source and sink for the duration of a run and releases both exactly
// once on every exit path.
type Loop struct {
	CfgSvc       config.IService
	SourceSvc    source.IService
	SinkSvc      sink.IService
	InferenceSvc inference.IService
	StatsStream  chan interface{}
	ErrorStream  chan interface{}

	runID  string
	state  runState
	perf   *PerfTracker
	frames int
}

func New(cfgSvc config.IService,
	sourceSvc source.IService,
	sinkSvc sink.IService,
	inferenceSvc inference.IService,
	statsStream chan interface{},
	errorStream chan interface{}) *Loop {
	return &Loop{
		CfgSvc:       cfgSvc,
		SourceSvc:    sourceSvc,
		SinkSvc:      sinkSvc,
		InferenceSvc: inferenceSvc,
		StatsStream:  statsStream,
		ErrorStream:  errorStream,
		state:        stateIdle,
	}
}

// Run executes the pipeline until the source ends, the user requests a
// stop, the context is cancelled, or a fatal fault occurs. Cancellation
// is cooperative: it is observed at iteration boundaries, never
// mid-inference. A cancel or interrupt is a normal termination, not an
// error.
func (l *Loop) Run(canxCtx context.Context) (model.TermStatus, error) {
	l.runID = uuid.NewString()
	l.perf = NewPerfTracker(l.CfgSvc.GetPerfWindowCapacity())
	l.frames = 0
	l.transition(stateStarting)

	startTime := time.Now().Unix()
	status := model.StatusCompleted
	var runErr error

	// Cleanup converges here from every terminal path. Source and sink
	// are released exactly once; both tolerate repeated release.
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		l.SourceSvc.Stop()
		l.SinkSvc.Close()
	}
	defer func() {
		release()
		l.transition(stateIdle)
		l.emitReport(status, startTime)
	}()

	if err := l.SinkSvc.Open(); err != nil {
		l.transition(stateFailed)
		status = model.StatusFailed
		runErr = fmt.Errorf("%w: opening sink: %v", model.ErrSinkFailure, err)
		return status, runErr
	}

	if err := l.SourceSvc.Start(); err != nil {
		l.transition(stateFailed)
		status = model.StatusFailed
		runErr = err // already classified as source unavailable
		return status, runErr
	}

	l.transition(stateRunning)
	shape := l.InferenceSvc.InputShape()

	for l.state == stateRunning {
		res, err := l.step(canxCtx, shape)
		switch res {
		case stepContinue:

		case stepEndOfStream:
			lgr.Logger.Info(
				"source ended",
				slog.String("runID", l.runID),
				slog.Int("frames", l.frames),
			)
			l.transition(stateStopping)

		case stepUserCancel:
			lgr.Logger.Info(
				"stop requested",
				slog.String("runID", l.runID),
				slog.Int("frames", l.frames),
			)
			status = model.StatusCancelled
			l.transition(stateStopping)

		case stepFault:
			status = model.StatusFailed
			runErr = err
			if l.ErrorStream != nil {
				l.ErrorStream <- model.GenError("pipeline_loop",
					err,
					map[string]interface{}{"runID": l.runID, "frames": l.frames},
					"pipeline run faulted")
			}
			l.transition(stateFailed)
		}
	}

	return status, runErr
}

// step runs one full iteration and reports its tagged outcome.
func (l *Loop) step(canxCtx context.Context, shape model.Shape) (stepResult, error) {
	select {
	case <-canxCtx.Done():
		return stepUserCancel, nil
	default:
	}

	frame, err := l.SourceSvc.Next()
	if err != nil {
		if errors.Is(err, model.ErrEndOfStream) {
			return stepEndOfStream, nil
		}
		return stepFault, err
	}
	frame = Downscale(frame, l.CfgSvc.GetDownscaleThreshold())
	defer frame.Close()

	blob, err := Preprocess(frame, shape.H, shape.W)
	if err != nil {
		return stepFault, err
	}
	defer blob.Close()

	startInference := time.Now()
	output, err := l.InferenceSvc.Invoke(blob)
	elapsed := time.Since(startInference)
	if err != nil {
		if !errors.Is(err, model.ErrInferenceFailure) {
			err = fmt.Errorf("%w: %v", model.ErrInferenceFailure, err)
		}
		return stepFault, err
	}
	defer output.Close()

	result, err := Postprocess(frame, output)
	if err != nil {
		return stepFault, err
	}
	defer result.Close()

	l.perf.Record(elapsed.Seconds())
	l.overlay(&result)
	if l.CfgSvc.GetLatencyLogging() {
		l.logLatency(elapsed)
	}

	stop, err := l.SinkSvc.Present(result)
	if err != nil {
		if !errors.Is(err, model.ErrSinkFailure) {
			err = fmt.Errorf("%w: %v", model.ErrSinkFailure, err)
		}
		return stepFault, err
	}

	// The frame was fully processed and presented: it counts even when
	// this present also carried the user's stop request.
	l.frames++

	if stop {
		return stepUserCancel, nil
	}

	return stepContinue, nil
}

// overlay renders the telemetry banner. Font scale follows frame width
// so legibility stays constant across resolutions.
func (l *Loop) overlay(img *gocv.Mat) {
	text := fmt.Sprintf("Inference time: %.1fms (%.1f FPS)", l.perf.MeanMillis(), l.perf.FPS())
	// gocv writes the RGBA as a B,G,R scalar; the frame is RGB-ordered
	// here, so the B field targets channel 0 and the banner stays red.
	gocv.PutTextWithParams(img, text,
		image.Pt(overlayAnchorX, overlayAnchorY),
		gocv.FontHersheyComplex,
		float64(img.Cols())/1000.0,
		color.RGBA{B: 255},
		1,
		gocv.LineAA,
		false)
}

func (l *Loop) transition(to runState) {
	lgr.Logger.Debug(
		"pipeline state transition",
		slog.String("runID", l.runID),
		slog.String("from", l.state.String()),
		slog.String("to", to.String()),
	)
	l.state = to
}

func (l *Loop) emitReport(status model.TermStatus, startTime int64) {
	mean := 0.0
	fps := 0.0
	if l.perf.Len() > 0 {
		mean = l.perf.MeanMillis()
		fps = l.perf.FPS()
	}

	report := model.RunReport{
		RunID:               l.runID,
		Source:              l.CfgSvc.GetSource(),
		Frames:              l.frames,
		Uptime:              time.Now().Unix() - startTime,
		MeanInferenceMillis: mean,
		FPS:                 fps,
		Status:              status.String(),
		Timestamp:           time.Now().Unix(),
	}

	if l.StatsStream != nil {
		l.StatsStream <- report
	}

	lgr.Logger.Info(
		"pipeline run finished",
		slog.String("runID", l.runID),
		slog.String("status", status.String()),
		slog.Int("frames", l.frames),
		slog.Float64("meanInferenceMillis", mean),
		slog.Float64("fps", fps),
	)
}

func (l *Loop) logLatency(elapsed time.Duration) {
	entry := map[string]interface{}{
		"time":        time.Now().Format(time.RFC3339),
		"runID":       l.runID,
		"inferenceMs": float64(elapsed.Microseconds()) / 1000.0,
		"meanMs":      l.perf.MeanMillis(),
		"fps":         l.perf.FPS(),
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Println("Error marshaling latency entry:", err)
		return
	}

	if _, err := latencyJournal.Write(append(jsonData, '\n')); err != nil {
		fmt.Println("Error writing to latency log file:", err)
	}
}
