package timeline

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raphi011/timeline/internal/model"
)

// maxBodySize limits the size of grouped test cases accepted over http.
const maxBodySize = 64 << 20

type MalformedRequestError struct {
	param string
}

func (e MalformedRequestError) Error() string {
	return "malformed request param: " + e.param
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()

	router.POST("/recordings/:recording-id/normalize", s.NormalizeRecording)
	router.POST("/verifications", s.StartVerification)
	router.GET("/healthz", s.Health)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}

func (s *Server) NormalizeRecording(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	recordingID := p.ByName("recording-id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil || len(body) == 0 {
		s.httpError(w, MalformedRequestError{param: "body"})
		return
	}

	client := &lazyClient{recordingID: recordingID, clients: s.clients}

	out, err := s.normalizer.NormalizeJSON(r.Context(), body, client)
	if err != nil {
		s.httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err = w.Write(out); err != nil {
		s.log.Warn("error writing body", "error", err)
	}
}

// StartVerification verifies the configured fixtures and responds with the summary.
func (s *Server) StartVerification(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if s.verification == nil {
		s.httpError(w, model.NotFoundError{})
		return
	}

	summary, err := s.verifier.Run(r.Context(), s.verification.FixtureDir)
	if err != nil {
		s.httpError(w, err)
		return
	}

	failures := summary.Failures
	if failures == nil {
		failures = []string{}
	}

	s.writeJSON(w, http.StatusOK, model.VerificationSummaryHTTP{
		Total:    summary.Total,
		Failed:   summary.Failed,
		Failures: failures,
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	var normalizeErr *model.Error
	var notFound model.NotFoundError
	var malformedRequest MalformedRequestError

	switch {
	case errors.As(err, &normalizeErr):
		s.writeJSON(w, statusOf(normalizeErr.Kind), model.ErrorHTTP{
			Kind:    string(normalizeErr.Kind),
			Message: normalizeErr.Message,
			Tags:    normalizeErr.Tags,
		})
	case errors.As(err, &notFound):
		s.writeJSON(w, http.StatusNotFound, model.ErrorHTTP{Kind: "not-found", Message: err.Error()})
	case errors.As(err, &malformedRequest):
		s.writeJSON(w, http.StatusBadRequest, model.ErrorHTTP{Kind: "malformed-request", Message: err.Error()})
	default:
		s.log.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, model.ErrorHTTP{Kind: "internal", Message: "internal server error"})
	}
}

// statusOf maps unsupported input to 400, the remaining kinds describe
// recordings that are inconsistent with their test metadata.
func statusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindUnsupportedSchema, model.KindUnsupportedRunner:
		return http.StatusBadRequest
	}

	return http.StatusUnprocessableEntity
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err = w.Write(body); err != nil {
		s.log.Warn("error writing body", "error", err)
	}
}
