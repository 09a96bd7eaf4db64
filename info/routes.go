package info

import (
	"net/http"
	"strings"
)

// GetStatus returns a simple health payload that can be used for lightweight diagnostics.
func (ih *InfoHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ih.respondProbe(w, r, http.StatusOK, "HEALTHY", 0)
}

// GetHealthz implements the liveness probe recommended for Kubernetes.
func (ih *InfoHandler) GetHealthz(w http.ResponseWriter, r *http.Request) {
	if err := ih.runChecks(r.Context(), ih.livenessChecks); err != nil {
		ih.HandleAPIError(w, r, http.StatusServiceUnavailable, err, "liveness probe failed")
		return
	}
	ih.respondProbe(w, r, http.StatusOK, "ok", len(ih.livenessChecks))
}

// GetReadyz implements the readiness probe recommended for Kubernetes.
func (ih *InfoHandler) GetReadyz(w http.ResponseWriter, r *http.Request) {
	if err := ih.runChecks(r.Context(), ih.readinessChecks); err != nil {
		ih.HandleAPIError(w, r, http.StatusServiceUnavailable, err, "readiness probe failed")
		return
	}
	ih.respondProbe(w, r, http.StatusOK, "ready", len(ih.readinessChecks))
}

// GetVersion returns the structure provided by the configured InfoProvider as
// an object envelope.
func (ih *InfoHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	ih.RespondWithObject(w, r, ih.infoProvider())
}

// GetServices lists the configured service names as a list envelope.
func (ih *InfoHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	ih.RespondWithList(w, r, ih.catalog())
}

// GetOpenAPIJSON streams the configured OpenAPI JSON document to the caller.
func (ih *InfoHandler) GetOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	bytes, err := ih.swaggerProvider()
	if err != nil {
		ih.HandleAPIError(w, r, http.StatusInternalServerError, err, "failed to load swagger spec")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(bytes); err != nil {
		ih.Logger().Error("failed to write swagger response", "error", err)
	}
}

// Mount registers every endpoint on mux below prefix, for example
// "/info/healthz".
func (ih *InfoHandler) Mount(mux *http.ServeMux, prefix string) {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	mux.HandleFunc("GET "+prefix+"/status", ih.GetStatus)
	mux.HandleFunc("GET "+prefix+"/healthz", ih.GetHealthz)
	mux.HandleFunc("GET "+prefix+"/readyz", ih.GetReadyz)
	mux.HandleFunc("GET "+prefix+"/version", ih.GetVersion)
	mux.HandleFunc("GET "+prefix+"/services", ih.GetServices)
	mux.HandleFunc("GET "+prefix+"/openapi.json", ih.GetOpenAPIJSON)
}
