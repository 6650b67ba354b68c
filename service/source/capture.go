package source

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/lgr"
)

// Device sources tolerate a few bad reads (sensor warm-up, transient
// decode errors). Files do not: a failed read means the stream ended.
const maxConsecutiveReadFailures = 10

type captureService struct {
	CfgSvc      config.IService
	StatsStream chan interface{}

	webcam    *gocv.VideoCapture
	isDevice  bool
	started   bool
	stopped   bool
	interval  time.Duration
	lastFrame time.Time

	startTime int64
	frames    int
	skipped   int
	errors    int
}

// NewCapture returns a frame source backed by a gocv video capture. The
// source identifier from config is either a device index ("0") or a
// file/stream path.
func NewCapture(cfgSvc config.IService, statsStream chan interface{}) IService {
	return &captureService{
		CfgSvc:      cfgSvc,
		StatsStream: statsStream,
	}
}

func (svc *captureService) Start() error {
	src := svc.CfgSvc.GetSource()

	var webcam *gocv.VideoCapture
	var err error
	if idx, convErr := strconv.Atoi(src); convErr == nil {
		svc.isDevice = true
		webcam, err = gocv.VideoCaptureDevice(idx)
	} else {
		webcam, err = gocv.OpenVideoCapture(src)
	}
	if err != nil {
		return fmt.Errorf("%w: opening %q: %v", model.ErrSourceUnavailable, src, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("%w: %q did not open", model.ErrSourceUnavailable, src)
	}

	svc.webcam = webcam
	svc.started = true
	svc.startTime = time.Now().Unix()

	if fps := svc.CfgSvc.GetTargetFPS(); fps > 0 && !svc.isDevice {
		svc.interval = time.Second / time.Duration(fps)
	}

	// Fast-forward past stream startup noise. Skipped frames are
	// discarded here so they never reach the loop's latency window.
	if skip := svc.CfgSvc.GetSkipFirstFrames(); skip > 0 {
		svc.webcam.Grab(skip)
		svc.skipped = skip
	}

	lgr.Logger.Info(
		"capture source started",
		slog.String("source", src),
		slog.Bool("device", svc.isDevice),
		slog.Int("skipFirstFrames", svc.skipped),
	)

	return nil
}

func (svc *captureService) Next() (gocv.Mat, error) {
	if !svc.started || svc.stopped {
		return gocv.Mat{}, fmt.Errorf("%w: source not started", model.ErrSourceUnavailable)
	}

	img := gocv.NewMat()
	failures := 0
	for {
		if ok := svc.webcam.Read(&img); ok && !img.Empty() {
			break
		}
		if !svc.isDevice {
			// File exhausted. Normal termination.
			img.Close()
			return gocv.Mat{}, model.ErrEndOfStream
		}
		svc.errors++
		failures++
		if failures >= maxConsecutiveReadFailures {
			img.Close()
			return gocv.Mat{}, fmt.Errorf("%w: %d consecutive read failures", model.ErrSourceUnavailable, failures)
		}
	}

	if svc.CfgSvc.GetFlip() {
		gocv.Flip(img, &img, 1)
	}

	// Deliver RGB. Downstream stages own all further conversions.
	gocv.CvtColor(img, &img, gocv.ColorBGRToRGB)

	// Pace file playback to the target rate. Live devices pace themselves.
	if svc.interval > 0 {
		if wait := svc.interval - time.Since(svc.lastFrame); wait > 0 {
			time.Sleep(wait)
		}
	}
	svc.lastFrame = time.Now()

	svc.frames++
	return img, nil
}

func (svc *captureService) Stop() {
	if svc.stopped {
		return
	}
	svc.stopped = true

	if svc.webcam != nil {
		svc.webcam.Close()
		svc.webcam = nil
	}

	if !svc.started {
		return
	}

	if svc.StatsStream != nil {
		svc.StatsStream <- model.SourceStats{
			Name:          "captureSource",
			Source:        svc.CfgSvc.GetSource(),
			Frames:        svc.frames,
			SkippedFrames: svc.skipped,
			Errors:        svc.errors,
			Uptime:        time.Now().Unix() - svc.startTime,
			Timestamp:     time.Now().Unix(),
		}
	}

	lgr.Logger.Info(
		"capture source stopped",
		slog.Int("frames", svc.frames),
		slog.Int("errors", svc.errors),
	)
}
