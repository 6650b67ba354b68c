package sink

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

const escapeKey = 27

type windowService struct {
	window *gocv.Window
	closed bool
}

// NewWindow returns a popup-window sink. ESC requests a stop.
func NewWindow() IService {
	return &windowService{}
}

func (svc *windowService) Open() error {
	svc.window = gocv.NewWindow("Press ESC to Exit")
	return nil
}

func (svc *windowService) Present(frame gocv.Mat) (bool, error) {
	if svc.window == nil || svc.closed {
		return false, fmt.Errorf("%w: window not open", model.ErrSinkFailure)
	}

	// The window renders OpenCV-native BGR.
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(frame, &bgr, gocv.ColorRGBToBGR)

	svc.window.IMShow(bgr)
	key := svc.window.WaitKey(1)

	return key == escapeKey, nil
}

func (svc *windowService) Close() {
	if svc.closed {
		return
	}
	svc.closed = true

	if svc.window != nil {
		svc.window.Close()
		svc.window = nil
	}
}
