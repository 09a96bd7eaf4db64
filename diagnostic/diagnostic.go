// Package diagnostic renders the multi-line report logged for every service
// call. Successful calls produce a single header line; failures append the
// call arguments and either the transport error chain or the captured call
// stack, so incidents can be debugged from logs alone.
package diagnostic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drblury/svcweaver/envelope"
)

const indent = "    "

// Option configures a Formatter.
type Option func(*Formatter)

// Formatter renders call reports. The zero value renders headers only; use
// New for the default of arguments and traces enabled.
type Formatter struct {
	arguments bool
	trace     bool
}

// New returns a Formatter that appends arguments and traces to failure
// reports unless disabled through options.
func New(opts ...Option) *Formatter {
	f := &Formatter{arguments: true, trace: true}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// WithArguments toggles the argument dump on failure reports.
func WithArguments(enabled bool) Option {
	return func(f *Formatter) {
		f.arguments = enabled
	}
}

// WithTrace toggles the exception or error trace on failure reports.
func WithTrace(enabled bool) Option {
	return func(f *Formatter) {
		f.trace = enabled
	}
}

var defaultFormatter = New()

// Format renders a report with the default Formatter.
func Format(r *envelope.Result, url string, elapsed time.Duration, args []any) string {
	return defaultFormatter.Format(r, url, elapsed, args)
}

// Format renders the report for r.
func (f *Formatter) Format(r *envelope.Result, url string, elapsed time.Duration, args []any) string {
	var b strings.Builder
	b.WriteString(Header(r, url, elapsed))
	if !r.HasError() {
		return b.String()
	}

	if f.arguments {
		writeArguments(&b, args)
	}
	if f.trace {
		if cause := r.Cause(); cause != nil {
			writeException(&b, cause, r.ErrorTrace())
		} else {
			writeTrace(&b, "error trace:", r.ErrorTrace(), 0)
		}
	}
	return b.String()
}

// Header renders the first report line.
func Header(r *envelope.Result, url string, elapsed time.Duration) string {
	ms := elapsed.Round(time.Millisecond).Milliseconds()
	if r.HasError() {
		return fmt.Sprintf("request [%s] failed in %dms - %s", url, ms, r.ErrorMessage())
	}
	return fmt.Sprintf("request [%s] succeeded in %dms - %s", url, ms, r.Contents())
}

func writeArguments(b *strings.Builder, args []any) {
	b.WriteString("\narguments: ")
	b.WriteString(strconv.Itoa(len(args)))
	for i, arg := range args {
		fmt.Fprintf(b, "\n%s#%d %s", indent, i, Value(arg))
	}
}

func writeException(b *strings.Builder, cause error, frames []envelope.Frame) {
	b.WriteString("\nexception trace:")
	n := 0
	for _, err := range errorChain(cause) {
		fmt.Fprintf(b, "\n%s#%d %T: %s", indent, n, err, strings.TrimSpace(err.Error()))
		n++
	}
	writeFrames(b, frames, n)
}

func writeTrace(b *strings.Builder, title string, frames []envelope.Frame, start int) {
	if frames == nil {
		return
	}
	b.WriteString("\n")
	b.WriteString(title)
	writeFrames(b, frames, start)
}

func writeFrames(b *strings.Builder, frames []envelope.Frame, start int) {
	for i, frame := range frames {
		fmt.Fprintf(b, "\n%s#%d %s", indent, start+i, Frame(frame))
	}
}

// Frame renders one stack frame as "file(line): Type.Function(args)".
func Frame(frame envelope.Frame) string {
	var b strings.Builder
	if frame.File != "" {
		fmt.Fprintf(&b, "%s(%d): ", frame.File, frame.Line)
	} else {
		b.WriteString("internal(0): ")
	}
	if frame.Type != "" {
		b.WriteString(frame.Type)
		b.WriteString(frame.Call)
	}
	if frame.Function != "" {
		b.WriteString(frame.Function)
		b.WriteString("(")
		for i, arg := range frame.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Value(arg))
		}
		b.WriteString(")")
	}
	return b.String()
}

// errorChain flattens err and everything it wraps, depth first.
func errorChain(err error) []error {
	var chain []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		chain = append(chain, e)
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(e))
		}
	}
	walk(err)
	return chain
}
