package pipeline

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

// Postprocess converts the model's NCHW output blob back into a
// displayable RGB frame with the original frame's spatial dimensions:
// channel planes are unpacked and merged to HWC, cubic-resized back up
// to display resolution, saturated to 8-bit (clamping to [0, 255]), and
// converted from the model's BGR order to RGB. Neither input is
// mutated; the caller owns the returned frame.
func Postprocess(original gocv.Mat, output gocv.Mat) (gocv.Mat, error) {
	dims := output.Size()
	if len(dims) != 4 || dims[0] != 1 {
		return gocv.Mat{}, fmt.Errorf("%w: unexpected output dims %v", model.ErrInferenceFailure, dims)
	}
	channels, height, width := dims[1], dims[2], dims[3]
	if channels != 3 || height <= 0 || width <= 0 {
		return gocv.Mat{}, fmt.Errorf("%w: unexpected output dims %v", model.ErrInferenceFailure, dims)
	}

	// Drop the batch dimension: one row per channel plane.
	planes := output.Reshape(1, channels)
	defer planes.Close()

	chans := make([]gocv.Mat, 0, channels)
	for i := 0; i < channels; i++ {
		row := planes.RowRange(i, i+1)
		plane := row.Reshape(1, height)
		row.Close()
		chans = append(chans, plane)
	}
	defer func() {
		for _, c := range chans {
			c.Close()
		}
	}()

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(chans, &merged)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(merged, &resized, image.Pt(original.Cols(), original.Rows()), 0, 0, gocv.InterpolationCubic)

	result := gocv.NewMat()
	resized.ConvertTo(&result, gocv.MatTypeCV8UC3)
	gocv.CvtColor(result, &result, gocv.ColorBGRToRGB)

	return result, nil
}
