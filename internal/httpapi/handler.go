package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"

	"github.com/rs/xid"

	"github.com/whisperlive/whisperlive/internal/batch"
	"github.com/whisperlive/whisperlive/internal/transcript"
)

const (
	// Version is reported by the health endpoint.
	Version = "1.0.0"

	maxRequestBodySize = 1 << 20
	maxUploadSize      = 256 << 20
)

// Handler provides the REST endpoints for batch transcription and result
// retrieval.
type Handler struct {
	processor   *batch.Processor
	store       *transcript.Store
	environment string
	initErr     error
}

// NewHandler creates the API handler. initErr is the transcription engine
// initialization failure, if any; it flips the health endpoint unhealthy.
func NewHandler(processor *batch.Processor, store *transcript.Store, environment string, initErr error) *Handler {
	return &Handler{
		processor:   processor,
		store:       store,
		environment: environment,
		initErr:     initErr,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/transcribe", h.Transcribe)
	mux.HandleFunc("POST /api/v1/upload-transcribe", h.UploadTranscribe)
	mux.HandleFunc("GET /api/v1/transcription-result/{request_id}", h.TranscriptionResult)
	mux.HandleFunc("GET /api/v1/session/{session_id}", h.SessionTranscript)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// Transcribe handles POST /api/v1/transcribe. The body is a storage
// notification wrapped in a push-subscription envelope; the object it
// names is transcribed in the background.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var envelope PubSubEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "message data is not valid base64")
		return
	}
	var notification objectNotification
	if err := json.Unmarshal(raw, &notification); err != nil {
		writeError(w, http.StatusBadRequest, "message data is not a valid notification")
		return
	}
	if notification.Bucket == "" || notification.Name == "" {
		writeError(w, http.StatusBadRequest, "bucket and name are required")
		return
	}

	requestID := xid.New().String()
	result := h.processor.SubmitObject(r.Context(), requestID,
		notification.Bucket, notification.Name, notification.SessionID, notification.Language)

	status := http.StatusAccepted
	if result.Status == batch.StatusSkipped {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// UploadTranscribe handles POST /api/v1/upload-transcribe. The multipart
// body carries the audio file directly.
func (h *Handler) UploadTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !batch.SupportedFormat(header.Filename) {
		requestID := xid.New().String()
		writeJSON(w, http.StatusOK, h.processor.SubmitUpload(r.Context(), requestID,
			"", header.Filename, r.FormValue("session_id"), r.FormValue("language")))
		return
	}

	tmp, err := os.CreateTemp("", "upload-*"+path.Ext(header.Filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	tmp.Close()

	requestID := xid.New().String()
	result := h.processor.SubmitUpload(r.Context(), requestID,
		tmp.Name(), header.Filename, r.FormValue("session_id"), r.FormValue("language"))
	writeJSON(w, http.StatusAccepted, result)
}

// TranscriptionResult handles GET /api/v1/transcription-result/{request_id}.
// Finished jobs return the transcript document itself; unfinished or
// failed jobs return their current status.
func (h *Handler) TranscriptionResult(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("request_id")
	result, ok := h.processor.Result(r.Context(), requestID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown request id")
		return
	}

	switch result.Status {
	case batch.StatusSuccess:
		if result.Result != nil {
			writeJSON(w, http.StatusOK, result.Result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case batch.StatusError:
		writeJSON(w, http.StatusInternalServerError, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// SessionTranscript handles GET /api/v1/session/{session_id}, returning
// the stored transcript of a finished streaming session.
func (h *Handler) SessionTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	doc, err := h.store.Load(r.Context(), transcript.SessionKey(sessionID))
	if err != nil {
		if transcript.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "no transcript for session")
			return
		}
		slog.ErrorContext(r.Context(), "session transcript read failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read transcript")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		Version:     Version,
		Environment: h.environment,
	}
	if h.initErr != nil {
		resp.Status = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
