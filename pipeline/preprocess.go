package pipeline

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
)

// Preprocess converts an RGB frame into the NCHW float32 blob the style
// model consumes: float conversion without rescaling, RGB to the
// model's BGR order, area-interpolated resize to the model input size,
// then channel-first packing with a leading batch dimension. The input
// frame is not mutated; the caller owns the returned blob.
func Preprocess(frame gocv.Mat, targetHeight, targetWidth int) (gocv.Mat, error) {
	if frame.Empty() || frame.Rows() <= 0 || frame.Cols() <= 0 {
		return gocv.Mat{}, fmt.Errorf("%w: zero-sized frame %dx%d", model.ErrInvalidFrame, frame.Rows(), frame.Cols())
	}

	f32 := gocv.NewMat()
	defer f32.Close()
	frame.ConvertTo(&f32, gocv.MatTypeCV32FC3)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(f32, &bgr, gocv.ColorRGBToBGR)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(bgr, &resized, image.Pt(targetWidth, targetHeight), 0, 0, gocv.InterpolationArea)

	// Already float, converted and resized: BlobFromImage only does the
	// HWC to NCHW packing here.
	blob := gocv.BlobFromImage(resized, 1.0, image.Pt(targetWidth, targetHeight), gocv.NewScalar(0, 0, 0, 0), false, false)
	return blob, nil
}

// Downscale bounds preprocessing and inference cost for large inputs:
// when the longer edge exceeds threshold, the frame is scaled down by a
// single uniform factor (aspect preserved) with area interpolation.
// Takes ownership of frame; the returned Mat replaces it.
func Downscale(frame gocv.Mat, threshold int) gocv.Mat {
	longest := frame.Rows()
	if frame.Cols() > longest {
		longest = frame.Cols()
	}
	if threshold <= 0 || longest <= threshold {
		return frame
	}

	scale := float64(threshold) / float64(longest)
	resized := gocv.NewMat()
	gocv.Resize(frame, &resized, image.Point{}, scale, scale, gocv.InterpolationArea)
	frame.Close()
	return resized
}
