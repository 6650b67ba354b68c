package inference

import (
	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

// IService is the compiled-model execution entry point. Invoke maps an
// NCHW float32 input blob to the model's output blob; the caller owns
// both Mats. One instance is bound to one model and one device for its
// whole lifetime; setup happens in the constructor, before the loop.
type IService interface {
	InputShape() model.Shape
	Invoke(blob gocv.Mat) (gocv.Mat, error)
	Close()
}
