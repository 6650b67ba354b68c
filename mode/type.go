package mode

import (
	"context"
	"log/slog"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/data"
	"github.com/artfilter/st-go/service/lgr"
)

type Processor func(canxCtx context.Context,
	cfgSvc config.IService,
	dataSvc data.IService) error

func procStats(dataSvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.RunReport:
		procRunReport(dataSvc, stats)
	case model.SourceStats:
		procSourceStats(dataSvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procRunReport(dataSvc data.IService, report model.RunReport) {
	err := dataSvc.NewRunReport(report)
	if err != nil {
		lgr.Logger.Error(
			"failed to store run report",
			slog.Any("report", report),
			slog.Any("error", err),
		)
	}
}

func procSourceStats(dataSvc data.IService, stats model.SourceStats) {
	err := dataSvc.NewSourceStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store source stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(dataSvc data.IService, err interface{}) {
	errTemp := dataSvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
