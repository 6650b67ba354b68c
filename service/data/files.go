package data

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
}

// NewFilesDB persists run reports and errors as JSON files under the
// configured reports folder.
func NewFilesDB(cfgSvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgSvc,
	}
}

func (svc *filesDBService) NewRunReport(report model.RunReport) error {
	report.Timestamp = time.Now().Unix()
	return svc.writeJSON(fmt.Sprintf("run_%s.json", report.RunID), report)
}

func (svc *filesDBService) NewSourceStats(stats model.SourceStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.writeJSON(fmt.Sprintf("source_%s_%d.json", stats.Name, stats.Timestamp), stats)
}

func (svc *filesDBService) NewError(e interface{}) error {
	entry := map[string]interface{}{
		"time":  time.Now().Format(time.RFC3339),
		"error": fmt.Sprintf("%v", e),
	}
	if custom, ok := e.(model.CustomError); ok {
		entry["processor"] = custom.Processor
		entry["message"] = custom.Message
	}
	return svc.writeJSON(fmt.Sprintf("error_%d.json", time.Now().UnixNano()), entry)
}

func (svc *filesDBService) writeJSON(name string, v interface{}) error {
	folder := svc.CfgSvc.GetReportsFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fmt.Sprintf("%s/%s", folder, name), data, 0o644)
}
