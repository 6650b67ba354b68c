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

// Bench measures pipeline overhead without hardware: a synthetic frame
// source, an identity style model, and a discarding sink. Useful to
// size the non-inference cost of the loop on a target machine.
func Bench(canxCtx context.Context, cfgSvc config.IService, dataSvc data.IService) error {
	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	invoker := inference.NewIdentity(cfgSvc.GetModelInputShape())
	defer invoker.Close()

	sourceSvc := source.NewSynthetic(cfgSvc.GetBenchFrames())
	sinkSvc := sink.NewDiscard()

	lgr.Logger.Info(
		"bench mode starting...",
		slog.Int("frames", cfgSvc.GetBenchFrames()),
		slog.String("inputShape", cfgSvc.GetModelInputShape().String()),
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
