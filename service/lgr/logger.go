package lgr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the shared process logger. Handler selection is controlled
// by the LOG_HANDLER env var: "pretty" (default) or "json".
var Logger *slog.Logger

func init() {
	level := slog.LevelInfo
	if l, err := strconv.Atoi(os.Getenv("LOG_LEVEL")); err == nil {
		level = slog.Level(l)
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}

	if os.Getenv("LOG_HANDLER") == "json" {
		Logger = slog.New(traceHandler{slog.NewJSONHandler(os.Stdout, opts)})
		return
	}

	Logger = slog.New(traceHandler{newPrettyHandler(os.Stdout, opts)})
}

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

// replaceAttr expands error attrs created with go-xerrors into a message
// plus a structured stack trace.
func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Value.Kind() {
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok {
			attr.Value = errValue(err)
		}
	}
	return attr
}

func errValue(err error) slog.Value {
	groupValues := []slog.Attr{slog.String("msg", err.Error())}

	callers := xerrors.StackTrace(err)
	if len(callers) > 0 {
		frames := callers.Frames()
		stack := make([]stackFrame, 0, len(frames))
		for _, f := range frames {
			stack = append(stack, stackFrame{
				Func:   filepath.Base(f.Function),
				Source: filepath.Base(f.File),
				Line:   f.Line,
			})
		}
		groupValues = append(groupValues, slog.Any("trace", stack))
	}

	return slog.GroupValue(groupValues...)
}

// traceHandler decorates records with the otel trace/span ids carried by
// the context, when a span is recording.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("traceId", sc.TraceID().String()),
			slog.String("spanId", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// prettyHandler renders colorized, human-scannable lines for dev runs.
type prettyHandler struct {
	opts  *slog.HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

func newPrettyHandler(out io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return &prettyHandler{
		opts: opts,
		mu:   &sync.Mutex{},
		out:  out,
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := map[string]interface{}{}
	collect := func(a slog.Attr) bool {
		if h.opts.ReplaceAttr != nil {
			a = h.opts.ReplaceAttr(nil, a)
		}
		fields[a.Key] = a.Value.Any()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	var payload []byte
	if len(fields) > 0 {
		var err error
		payload, err = json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintln(h.out,
		r.Time.Format(time.StampMilli),
		level,
		color.CyanString(r.Message),
		color.WhiteString(string(payload)),
	)
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyHandler{
		opts:  h.opts,
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		mu:    h.mu,
		out:   h.out,
	}
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened in pretty output.
	return h
}
