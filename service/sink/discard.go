package sink

import "gocv.io/x/gocv"

type discardService struct {
}

// NewDiscard returns a sink that drops every frame. Used by bench mode.
func NewDiscard() IService {
	return &discardService{}
}

func (svc *discardService) Open() error {
	return nil
}

func (svc *discardService) Present(_ gocv.Mat) (bool, error) {
	return false, nil
}

func (svc *discardService) Close() {
}
