package inference

import (
	"fmt"
	"log/slog"
	"os"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/config"
	"github.com/artfilter/st-go/service/lgr"
)

type dnnService struct {
	shape  model.Shape
	net    gocv.Net
	closed bool
}

// NewDNN loads the style model and binds it to the configured backend
// and target device. ONNX models load from a single file; two-file
// formats (e.g. OpenVINO IR) when a model config path is set.
func NewDNN(cfgSvc config.IService) (IService, error) {
	modelPath := cfgSvc.GetModelPath()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model %s does not exist", modelPath)
	}

	var net gocv.Net
	if cfgPath := cfgSvc.GetModelConfigPath(); cfgPath != "" {
		net = gocv.ReadNet(modelPath, cfgPath)
	} else {
		net = gocv.ReadNetFromONNX(modelPath)
	}
	if net.Empty() {
		return nil, fmt.Errorf("error reading model %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.ParseNetBackend(cfgSvc.GetModelBackend())); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.ParseNetTarget(cfgSvc.GetModelTarget())); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	shape := cfgSvc.GetModelInputShape()
	lgr.Logger.Info(
		"style model loaded",
		slog.String("model", modelPath),
		slog.String("inputShape", shape.String()),
		slog.String("backend", cfgSvc.GetModelBackend()),
		slog.String("target", cfgSvc.GetModelTarget()),
		slog.String("openCV", gocv.Version()),
	)

	return &dnnService{
		shape: shape,
		net:   net,
	}, nil
}

func (svc *dnnService) InputShape() model.Shape {
	return svc.shape
}

func (svc *dnnService) Invoke(blob gocv.Mat) (out gocv.Mat, err error) {
	// The DNN module faults through cgo on malformed input; keep that
	// contained to this call.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", model.ErrInferenceFailure, r)
		}
	}()

	svc.net.SetInput(blob, "")
	out = svc.net.Forward("")
	if out.Empty() {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("%w: empty forward output", model.ErrInferenceFailure)
	}

	return out, nil
}

func (svc *dnnService) Close() {
	if svc.closed {
		return
	}
	svc.closed = true
	svc.net.Close()
}
