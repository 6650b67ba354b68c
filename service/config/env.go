package config

import (
	"os"
	"strconv"

	"github.com/artfilter/st-go/model"
)

type envService struct {
}

// NewEnv returns a config service backed by environment variables with
// hardcoded defaults. Env vars are expected to be loaded from a .env
// file by main in dev mode.
func NewEnv() IService {
	return &envService{}
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return getInt("MODE_MAX_SHUTDOWN_TIME", 5)
}

// GetSource returns the capture source identifier: a device index
// ("0", "1", ...) or a video file/stream path.
func (svc *envService) GetSource() string {
	return getString("SOURCE", "0")
}

func (svc *envService) GetFlip() bool {
	return getBool("FLIP", true)
}

func (svc *envService) GetTargetFPS() int {
	return getInt("TARGET_FPS", 30)
}

func (svc *envService) GetSkipFirstFrames() int {
	return getInt("SKIP_FIRST_FRAMES", 0)
}

// GetDisplayMode returns "popup" for a native window or "inline" for
// the MJPEG streaming sink.
func (svc *envService) GetDisplayMode() string {
	return getString("DISPLAY_MODE", "popup")
}

func (svc *envService) GetMJPEGAddress() string {
	return getString("MJPEG_ADDRESS", ":8088")
}

// GetDownscaleThreshold is the longer-edge pixel bound above which
// frames are proportionally downscaled before preprocessing.
func (svc *envService) GetDownscaleThreshold() int {
	return getInt("DOWNSCALE_THRESHOLD", 720)
}

func (svc *envService) GetPerfWindowCapacity() int {
	return getInt("PERF_WINDOW_CAPACITY", 200)
}

func (svc *envService) GetModelPath() string {
	return getString("MODEL_PATH", "./models/mosaic-9.onnx")
}

// GetModelConfigPath is only needed for two-file formats such as
// OpenVINO IR (xml + bin). Empty for ONNX.
func (svc *envService) GetModelConfigPath() string {
	return getString("MODEL_CONFIG_PATH", "")
}

func (svc *envService) GetModelInputShape() model.Shape {
	return model.Shape{
		N: 1,
		C: 3,
		H: getInt("MODEL_INPUT_HEIGHT", 224),
		W: getInt("MODEL_INPUT_WIDTH", 224),
	}
}

func (svc *envService) GetModelBackend() string {
	return getString("MODEL_BACKEND", "default")
}

func (svc *envService) GetModelTarget() string {
	return getString("MODEL_TARGET", "cpu")
}

func (svc *envService) GetReportsFolder() string {
	return getString("REPORTS_FOLDER", "./reports")
}

func (svc *envService) GetLatencyLogging() bool {
	return getBool("LATENCY_LOGGING", false)
}

func (svc *envService) GetBenchFrames() int {
	return getInt("BENCH_FRAMES", 300)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
