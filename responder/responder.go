package responder

import (
	"errors"
	"log/slog"
	"net/http"
)

const (
	jsonContentType = "application/json"

	// RequestIDHeader is echoed on every response. Incoming values are kept
	// so a call keeps one id across services.
	RequestIDHeader = "X-Request-Id"
)

// ErrorClassifierFunc inspects an error and returns the HTTP status that should
// be used for the response. The boolean indicates whether the error was
// classified and prevents the generic internal server handler from running.
type ErrorClassifierFunc func(err error) (status int, handled bool)

// ResponderOption follows the functional options pattern used by NewResponder
// to configure optional collaborators.
type ResponderOption func(*Responder)

type statusMeta struct {
	errno    int
	logLevel slog.Leveler
	logMsg   string
}

func (m statusMeta) level() slog.Level {
	if m.logLevel == nil {
		return slog.LevelError
	}
	return m.logLevel.Level()
}

// StatusMetadata allows callers to customise how particular HTTP status codes
// are logged and which errno their error envelopes carry. A zero Errno keeps
// the default: the errno of the error itself, or the status code. A nil
// LogLevel logs at Error; any slog.Level, including slog.LevelInfo, is used
// as given.
type StatusMetadata struct {
	Errno    int
	LogLevel slog.Leveler
	LogMsg   string
}

// Responder renders handler outcomes as errno/error/data envelopes and logs
// failures with a correlation id.
type Responder struct {
	log             *slog.Logger
	statusMetadata  map[int]statusMeta
	errorClassifier ErrorClassifierFunc
}

// NewResponder constructs a Responder with default status metadata and the
// global slog logger. Use ResponderOption functions to override specific
// behaviours.
func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{
		log:            slog.Default(),
		statusMetadata: defaultStatusMetadata(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// WithLogger injects a custom slog logger for error reporting.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) {
		if logger != nil {
			r.log = logger
		}
	}
}

// WithErrorClassifier installs a classifier used by HandleErrors to derive the
// HTTP status code from returned errors.
func WithErrorClassifier(classifier ErrorClassifierFunc) ResponderOption {
	return func(r *Responder) {
		r.errorClassifier = classifier
	}
}

// WithStatusMetadata overrides the error metadata used for a specific HTTP
// status code.
func WithStatusMetadata(status int, meta StatusMetadata) ResponderOption {
	return func(r *Responder) {
		if r.statusMetadata == nil {
			r.statusMetadata = make(map[int]statusMeta)
		}
		r.statusMetadata[status] = statusMeta{
			errno:    meta.Errno,
			logLevel: meta.LogLevel,
			logMsg:   meta.LogMsg,
		}
	}
}

// Logger returns the slog logger used internally by the responder.
func (r *Responder) Logger() *slog.Logger {
	return r.logger()
}

func (r *Responder) logger() *slog.Logger {
	if r == nil || r.log == nil {
		return slog.Default()
	}
	return r.log
}

func (r *Responder) classifyError(err error) (int, bool) {
	if r.errorClassifier == nil {
		return 0, false
	}
	return r.errorClassifier(err)
}

func (r *Responder) statusMetaFor(status int) statusMeta {
	meta := r.statusMetadata[status]
	if meta.logMsg == "" {
		meta.logMsg = http.StatusText(status)
	}
	return meta
}

// errnoFor picks the errno written for err: the status override first, then
// an errno carried by the error chain, then the HTTP status itself.
func errnoFor(status int, meta statusMeta, err error) int {
	if meta.errno != 0 {
		return meta.errno
	}
	var carrier interface{ Errno() int }
	if errors.As(err, &carrier) && carrier.Errno() != 0 {
		return carrier.Errno()
	}
	return status
}

func defaultStatusMetadata() map[int]statusMeta {
	return map[int]statusMeta{
		http.StatusInternalServerError: {logLevel: slog.LevelError, logMsg: "Internal Server Error"},
		http.StatusBadRequest:          {logLevel: slog.LevelWarn, logMsg: "Bad Request"},
		http.StatusUnauthorized:        {logLevel: slog.LevelWarn, logMsg: "Unauthorized"},
		http.StatusNotFound:            {logLevel: slog.LevelWarn, logMsg: "Not Found"},
	}
}
