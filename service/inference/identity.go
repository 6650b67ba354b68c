package inference

import (
	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

type identityService struct {
	shape model.Shape
}

// NewIdentity returns an invoker whose "style" is a no-op: the output
// blob is a copy of the input blob. Used by bench mode to measure loop
// overhead and by tests to verify round-trip contracts.
func NewIdentity(shape model.Shape) IService {
	return &identityService{shape: shape}
}

func (svc *identityService) InputShape() model.Shape {
	return svc.shape
}

func (svc *identityService) Invoke(blob gocv.Mat) (gocv.Mat, error) {
	return blob.Clone(), nil
}

func (svc *identityService) Close() {
}
