package config

import "github.com/artfilter/st-go/model"

type IService interface {
	GetModeMaxShutdownTime() int
	GetSource() string
	GetFlip() bool
	GetTargetFPS() int
	GetSkipFirstFrames() int
	GetDisplayMode() string
	GetMJPEGAddress() string
	GetDownscaleThreshold() int
	GetPerfWindowCapacity() int
	GetModelPath() string
	GetModelConfigPath() string
	GetModelInputShape() model.Shape
	GetModelBackend() string
	GetModelTarget() string
	GetReportsFolder() string
	GetLatencyLogging() bool
	GetBenchFrames() int
}
