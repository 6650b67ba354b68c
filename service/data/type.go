package data

import "github.com/artfilter/st-go/model"

type IService interface {
	NewRunReport(report model.RunReport) error
	NewSourceStats(stats model.SourceStats) error
	NewError(err interface{}) error
}
