package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/artfilter/st-go/mode"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/data"
	"github.com/artfilter/st-go/service/lgr"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"stream": mode.Stream,
	"bench":  mode.Bench,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context.
	// An interrupt is a graceful stop request, not a fault: the loop
	// observes the cancelled context at the next iteration boundary and
	// routes through its normal cleanup path.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			panic("error loading .env file")
		}
	}

	modeType := "stream"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// Config service
	cfgSvc := config.NewEnv()
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, cfgSvc, dataSvc)
	}()

	exitCode := 0

	// Wait for cancellation, mode proc result or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"style pipeline context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				exitCode = 1
				lgr.Logger.Error(
					"style pipeline mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"style pipeline is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"style pipeline shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			os.Exit(exitCode)

		case err := <-modeProcResult:
			if err != nil {
				exitCode = 1
				lgr.Logger.Error(
					"style pipeline mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}
