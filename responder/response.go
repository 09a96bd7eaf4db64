package responder

import (
	"errors"
	"net/http"

	"github.com/drblury/svcweaver/envelope"
	"github.com/drblury/svcweaver/jsonutil"
)

var errNilResult = errors.New("responder: nil result")

// HandleAPIError renders an error envelope for the supplied HTTP status and
// logs it with a correlation id using the configured logger.
func (r *Responder) HandleAPIError(w http.ResponseWriter, req *http.Request, status int, err error, logMsg ...string) {
	if err == nil {
		return
	}

	meta := r.statusMetaFor(status)
	errno := errnoFor(status, meta, err)
	traceID := traceIDFor(req)

	logger := r.logger().With(
		"error", err.Error(),
		"errno", errno,
		"traceId", traceID,
		"status", status,
		"path", requestInstance(req),
	)
	if len(logMsg) > 0 {
		logger = logger.With("logMessages", logMsg)
	}
	logger.Log(requestContext(req), meta.level(), meta.logMsg)

	setRequestID(w, traceID)
	r.respondWithJSON(w, status, envelope.Builder{}.WithError(err.Error(), errno))
}

// HandleInternalServerError is a shortcut that reports a 500 status code.
func (r *Responder) HandleInternalServerError(w http.ResponseWriter, req *http.Request, err error, logMsg ...string) {
	r.HandleAPIError(w, req, http.StatusInternalServerError, err, logMsg...)
}

// HandleBadRequestError reports client validation errors using HTTP 400.
func (r *Responder) HandleBadRequestError(w http.ResponseWriter, req *http.Request, err error, logMsg ...string) {
	r.HandleAPIError(w, req, http.StatusBadRequest, err, logMsg...)
}

// HandleUnauthorizedError reports authentication failures using HTTP 401.
func (r *Responder) HandleUnauthorizedError(w http.ResponseWriter, req *http.Request, err error, logMsg ...string) {
	r.HandleAPIError(w, req, http.StatusUnauthorized, err, logMsg...)
}

// HandleNotFoundError reports missing resources using HTTP 404.
func (r *Responder) HandleNotFoundError(w http.ResponseWriter, req *http.Request, err error, logMsg ...string) {
	r.HandleAPIError(w, req, http.StatusNotFound, err, logMsg...)
}

// HandleErrors inspects the supplied error using the configured classifier and
// emits an appropriate error envelope.
func (r *Responder) HandleErrors(w http.ResponseWriter, req *http.Request, err error, msgs ...string) {
	if err == nil {
		return
	}

	if status, handled := r.classifyError(err); handled {
		r.HandleAPIError(w, req, status, err, msgs...)
		return
	}

	r.HandleInternalServerError(w, req, err, msgs...)
}

// RespondWithEnvelope writes env with the supplied status code.
func (r *Responder) RespondWithEnvelope(w http.ResponseWriter, req *http.Request, status int, env envelope.Envelope) {
	setRequestID(w, traceIDFor(req))
	r.respondWithJSON(w, status, env)
}

// RespondWithObject writes a 200 object envelope.
func (r *Responder) RespondWithObject(w http.ResponseWriter, req *http.Request, data any) {
	r.RespondWithEnvelope(w, req, http.StatusOK, envelope.Builder{}.WithObject(data))
}

// RespondWithList writes a 200 list envelope.
func (r *Responder) RespondWithList(w http.ResponseWriter, req *http.Request, data any) {
	r.RespondWithEnvelope(w, req, http.StatusOK, envelope.Builder{}.WithList(data))
}

// RespondWithPaging writes a 200 paging list envelope.
func (r *Responder) RespondWithPaging(w http.ResponseWriter, req *http.Request, total, page, pageSize int, data any) {
	r.RespondWithEnvelope(w, req, http.StatusOK, envelope.Builder{}.SetPaging(total, page, pageSize).WithPaging(data))
}

// RespondWithSuccess writes a 200 envelope with an empty object payload.
func (r *Responder) RespondWithSuccess(w http.ResponseWriter, req *http.Request) {
	r.RespondWithEnvelope(w, req, http.StatusOK, envelope.Builder{}.WithSuccess())
}

// RespondWithResult relays a Result received from another service. Successes
// are written verbatim. Business errors keep their errno and message with a
// 200 status; every other failure becomes a 502 error envelope.
func (r *Responder) RespondWithResult(w http.ResponseWriter, req *http.Request, res *envelope.Result) {
	if res == nil {
		r.HandleInternalServerError(w, req, errNilResult)
		return
	}
	if !res.HasError() {
		setRequestID(w, traceIDFor(req))
		r.writeResponse(w, http.StatusOK, []byte(res.Contents()))
		return
	}
	if res.Failure().Kind == envelope.KindBusiness {
		r.RespondWithEnvelope(w, req, http.StatusOK, envelope.Builder{}.WithError(res.ErrorMessage(), res.Errno()))
		return
	}
	r.HandleAPIError(w, req, http.StatusBadGateway, res.Err(), "upstream call failed")
}

// RespondWithJSON serialises the provided value and writes it to the response
// using the supplied status code.
func (r *Responder) RespondWithJSON(w http.ResponseWriter, req *http.Request, status int, v any) {
	r.respondWithJSON(w, status, v)
}

func (r *Responder) respondWithJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	body, err := r.marshalPayload(payload)
	if err != nil {
		r.logger().Error("failed to encode response", "error", err)
		fallback, _ := envelope.Builder{}.WithError(http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError).Bytes()
		r.writeResponse(w, http.StatusInternalServerError, append(fallback, '\n'))
		return
	}

	r.writeResponse(w, status, body)
}

func (r *Responder) marshalPayload(payload any) ([]byte, error) {
	data, err := jsonutil.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return data, nil
}

func (r *Responder) writeResponse(w http.ResponseWriter, status int, body []byte) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		r.logger().Error("failed to write response", "error", err)
	}
}

func setRequestID(w http.ResponseWriter, id string) {
	if w != nil {
		w.Header().Set(RequestIDHeader, id)
	}
}
