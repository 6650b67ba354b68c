package mode

import (
	"context"
	"log/slog"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/pipeline"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/data"
	"github.com/artfilter/st-go/service/inference"
	"github.com/artfilter/st-go/service/lgr"
	"github.com/artfilter/st-go/service/sink"
	"github.com/artfilter/st-go/service/source"
)

// Stream runs the live style-transfer pipeline: capture source, style
// model, and the configured display sink (popup window or inline MJPEG
// stream).
func Stream(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) error {
	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	// One-time setup: the model is loaded and device-bound before the
	// loop starts.
	invoker, err := inference.NewDNN(cfgSvc)
	if err != nil {
		return err
	}
	defer invoker.Close()

	sourceSvc := source.NewCapture(cfgSvc, statsStream)

	var sinkSvc sink.IService
	switch cfgSvc.GetDisplayMode() {
	case "inline":
		sinkSvc = sink.NewMJPEG(cfgSvc.GetMJPEGAddress())
	default:
		sinkSvc = sink.NewWindow()
	}

	lgr.Logger.Info(
		"stream mode starting...",
		slog.String("source", cfgSvc.GetSource()),
		slog.String("displayMode", cfgSvc.GetDisplayMode()),
		slog.Bool("flip", cfgSvc.GetFlip()),
		slog.Int("targetFPS", cfgSvc.GetTargetFPS()),
	)

	loop := pipeline.New(cfgSvc, sourceSvc, sinkSvc, invoker, statsStream, errorStream)

	runResult := make(chan error, 1)
	go func() {
		status, runErr := loop.Run(canxCtx)
		if status == model.StatusFailed {
			runResult <- runErr
			return
		}
		runResult <- nil
	}()

	// Consume stats and errors until the run finishes, then drain.
	for {
		select {
		case e := <-errorStream:
			procError(dataSvc, e)

		case s := <-statsStream:
			procStats(dataSvc, s)

		case err := <-runResult:
			for {
				select {
				case e := <-errorStream:
					procError(dataSvc, e)
				case s := <-statsStream:
					procStats(dataSvc, s)
				default:
					return err
				}
			}
		}
	}
}
