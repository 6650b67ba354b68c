package model

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Error taxonomy of the pipeline. Every terminal condition the loop can
// observe maps to exactly one of these sentinels so callers can classify
// with errors.Is regardless of how many times the error was wrapped.
var (
	// ErrEndOfStream is a normal termination condition, not a fault.
	ErrEndOfStream = errors.New("end of stream")

	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidFrame      = errors.New("invalid frame")
	ErrInferenceFailure  = errors.New("inference failure")
	ErrSinkFailure       = errors.New("sink failure")
)

// TermStatus is the terminal status of a pipeline run.
type TermStatus int

const (
	StatusCompleted TermStatus = iota // source exhausted normally
	StatusCancelled                   // user stop request or interrupt
	StatusFailed                      // fatal fault, see the returned error
)

func (s TermStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Shape is the declared NCHW input contract of a compiled model,
// captured once at setup and treated as immutable configuration.
type Shape struct {
	N int `json:"n"`
	C int `json:"c"`
	H int `json:"h"`
	W int `json:"w"`
}

func (s Shape) String() string {
	return fmt.Sprintf("[%d %d %d %d]", s.N, s.C, s.H, s.W)
}

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// RunReport summarizes a single pipeline run. Emitted once on the stats
// stream when the loop returns to idle. Skip and read-error accounting
// belongs to the source and travels in SourceStats.
type RunReport struct {
	RunID               string  `json:"runId"`
	Source              string  `json:"source"`
	Frames              int     `json:"frames"`
	Uptime              int64   `json:"uptime"`
	MeanInferenceMillis float64 `json:"meanInferenceMillis"`
	FPS                 float64 `json:"fps"`
	Status              string  `json:"status"`
	Timestamp           int64   `json:"timestamp"`
}

// SourceStats is emitted by frame sources when they stop.
type SourceStats struct {
	Name          string `json:"name"`
	Source        string `json:"source"`
	Frames        int    `json:"frames"`
	SkippedFrames int    `json:"skippedFrames"`
	Errors        int    `json:"errors"`
	Uptime        int64  `json:"uptime"`
	Timestamp     int64  `json:"timestamp"`
}
