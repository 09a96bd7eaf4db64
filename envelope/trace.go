package envelope

import (
	"runtime"
	"strings"
)

const maxTraceDepth = 32

// Frame describes a single call-stack entry attached to a Failure.
type Frame struct {
	File string
	Line int
	// Type is the package-qualified receiver, e.g. "client.(*Client)". It is
	// empty for plain functions.
	Type string
	// Call separates Type from Function when Type is set.
	Call     string
	Function string
	// Args holds call arguments when the frame source recorded them. Frames
	// captured from the Go runtime never carry arguments.
	Args []any
}

// StackTracer is implemented by errors that carry the frames of the place
// they were raised. FromError prefers these frames over the capture site.
type StackTracer interface {
	StackFrames() []Frame
}

// captureFrames records the stack of its caller, innermost first.
func captureFrames() []Frame {
	pcs := make([]uintptr, maxTraceDepth)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		f, more := frames.Next()
		if f.Function != "" && !strings.HasPrefix(f.Function, "runtime.") {
			typ, call, fn := splitFunction(f.Function)
			out = append(out, Frame{
				File:     f.File,
				Line:     f.Line,
				Type:     typ,
				Call:     call,
				Function: fn,
			})
		}
		if !more {
			break
		}
	}
	return out
}

// splitFunction breaks a runtime symbol such as
// "github.com/acme/svc/client.(*Client).Invoke" into its receiver, call
// marker and function name.
func splitFunction(symbol string) (typ, call, fn string) {
	base := symbol
	if slash := strings.LastIndex(base, "/"); slash >= 0 {
		base = base[slash+1:]
	}

	dot := strings.Index(base, ".")
	if dot < 0 {
		return "", "", base
	}
	pkg, sym := base[:dot], base[dot+1:]

	if strings.HasPrefix(sym, "(*") {
		if end := strings.Index(sym, ")."); end > 0 {
			return pkg + "." + sym[:end+1], ".", sym[end+2:]
		}
	}

	if sep := strings.Index(sym, "."); sep > 0 && !strings.HasPrefix(sym[sep+1:], "func") {
		return pkg + "." + sym[:sep], ".", sym[sep+1:]
	}

	return "", "", base
}
