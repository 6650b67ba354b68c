package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/artfilter/st-go/model"
	"github.com/artfilter/st-go/service/lgr"
)

const jpegQuality = 90

type mjpegService struct {
	addr   string
	server *http.Server

	mu     sync.RWMutex
	latest []byte
	opened bool
	closed bool
}

// NewMJPEG returns the inline-display sink: frames are JPEG-encoded and
// served as a multipart/x-mixed-replace stream over HTTP. Browser
// viewers cannot signal a stop, so Present never reports one; inline
// runs end on source exhaustion or interrupt.
func NewMJPEG(addr string) IService {
	return &mjpegService{addr: addr}
}

func (svc *mjpegService) Open() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", svc.serveStream)

	// Bind synchronously so a dead address surfaces here, not as a
	// headless run that keeps accepting frames.
	listener, err := net.Listen("tcp", svc.addr)
	if err != nil {
		return fmt.Errorf("%w: binding %s: %v", model.ErrSinkFailure, svc.addr, err)
	}

	svc.server = &http.Server{
		Handler: mux,
	}
	svc.opened = true

	go func() {
		err := svc.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			lgr.Logger.Error(
				"mjpeg sink server exited",
				slog.Any("error", err),
			)
		}
	}()

	lgr.Logger.Info(
		"mjpeg sink listening",
		slog.String("address", listener.Addr().String()),
		slog.String("path", "/stream"),
	)

	return nil
}

func (svc *mjpegService) Present(frame gocv.Mat) (bool, error) {
	if !svc.opened || svc.closed {
		return false, fmt.Errorf("%w: mjpeg sink not open", model.ErrSinkFailure)
	}

	// JPEG encoding expects OpenCV-native BGR.
	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(frame, &bgr, gocv.ColorRGBToBGR)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return false, fmt.Errorf("%w: jpeg encode: %v", model.ErrSinkFailure, err)
	}
	defer buf.Close()

	encoded := make([]byte, buf.Len())
	copy(encoded, buf.GetBytes())

	svc.mu.Lock()
	svc.latest = encoded
	svc.mu.Unlock()

	return false, nil
}

func (svc *mjpegService) serveStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			svc.mu.RLock()
			frame := svc.latest
			svc.mu.RUnlock()
			if frame == nil {
				continue
			}

			_, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame))
			if err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

func (svc *mjpegService) Close() {
	if svc.closed {
		return
	}
	svc.closed = true

	if svc.server != nil {
		ctx, canxFn := context.WithTimeout(context.Background(), 2*time.Second)
		defer canxFn()
		if err := svc.server.Shutdown(ctx); err != nil {
			lgr.Logger.Warn(
				"mjpeg sink shutdown",
				slog.Any("error", err),
			)
		}
	}
}
