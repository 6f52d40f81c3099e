package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gwi.com/voice-calorie-log/internal/core"
	"gwi.com/voice-calorie-log/internal/voice"
)

const maxAudioUpload = 20 << 20

// statusClientClosedRequest is reported when the caller went away first.
const statusClientClosedRequest = 499

type APIHandler struct {
	foodLog *core.FoodLogService
	capture *voice.Capture
	logger  *zap.Logger
}

func NewAPIHandler(fl *core.FoodLogService, capture *voice.Capture, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{foodLog: fl, capture: capture, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrCredentialMissing):
		return http.StatusPreconditionRequired
	case errors.Is(err, core.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrExtraction), errors.Is(err, voice.ErrRecognition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrPromptOpen), errors.Is(err, core.ErrNoPending), errors.Is(err, core.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, core.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, voice.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.UserNotice(err)
	if status == statusClientClosedRequest {
		h.logger.Debug("Client went away", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, errorResponse{Error: "Request cancelled"})
		return
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "Internal error"
	} else {
		h.logger.Warn("Request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Credential gate

type CredentialStatusResponse struct {
	Configured bool `json:"configured"`
}

type SetCredentialRequest struct {
	APIKey string `json:"api_key"`
}

func (h *APIHandler) GetCredentialHandler(w http.ResponseWriter, r *http.Request) {
	ok, err := h.foodLog.HasCredential()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CredentialStatusResponse{Configured: ok})
}

func (h *APIHandler) PutCredentialHandler(w http.ResponseWriter, r *http.Request) {
	var req SetCredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.foodLog.SetCredential(req.APIKey); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CredentialStatusResponse{Configured: true})
}

// Daily log

func (h *APIHandler) GetLogHandler(w http.ResponseWriter, r *http.Request) {
	view, err := h.foodLog.Today()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) DeleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")
	view, err := h.foodLog.Delete(entryID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) ListFoodsHandler(w http.ResponseWriter, r *http.Request) {
	foods, err := h.foodLog.Foods()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if foods == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, foods)
}

// Voice interactions

type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

func (h *APIHandler) PostUtteranceHandler(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.handleTranscript(w, r, req.Transcript)
}

func (h *APIHandler) handleTranscript(w http.ResponseWriter, r *http.Request, transcript string) {
	outcome, err := h.foodLog.HandleTranscript(r.Context(), transcript)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// listen runs one capture session over the uploaded audio. It reports
// false when the response has already been written.
func (h *APIHandler) listen(w http.ResponseWriter, r *http.Request) (string, bool) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioUpload+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Could not read audio"})
		return "", false
	}
	if len(audio) > maxAudioUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Audio clip is too large"})
		return "", false
	}

	mimeType := strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
	sess, err := h.capture.Toggle(r.Context(), voice.WithMIMEType(bytes.NewReader(audio), mimeType))
	if err != nil {
		h.writeError(w, r, err)
		return "", false
	}
	if sess == nil {
		// this request stopped the session that was listening
		w.WriteHeader(http.StatusNoContent)
		return "", false
	}

	res, ok := sess.Wait(r.Context())
	if !ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Listening was cancelled"})
		return "", false
	}
	if res.Err != nil {
		h.writeError(w, r, res.Err)
		return "", false
	}
	return res.Transcript, true
}

func (h *APIHandler) PostVoiceHandler(w http.ResponseWriter, r *http.Request) {
	transcript, ok := h.listen(w, r)
	if !ok {
		return
	}
	h.handleTranscript(w, r, transcript)
}

// Density prompt

type PendingInputRequest struct {
	Value string `json:"value"`
}

type ConfirmRequest struct {
	// Either a JSON number or a string; validated by the workflow.
	CaloriesPer100g json.RawMessage `json:"calories_per_100g"`
}

type DictationResponse struct {
	Value int `json:"value"`
}

func (h *APIHandler) GetPendingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.foodLog.State())
}

func (h *APIHandler) PutPendingInputHandler(w http.ResponseWriter, r *http.Request) {
	var req PendingInputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.foodLog.SetPendingInput(req.Value); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.foodLog.State())
}

func (h *APIHandler) ConfirmPendingHandler(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if r.Body != http.NoBody {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	input := strings.Trim(strings.TrimSpace(string(req.CaloriesPer100g)), `"`)
	if input == "null" {
		input = ""
	}

	entry, err := h.foodLog.Confirm(input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *APIHandler) CancelPendingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.foodLog.Cancel(); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) PostDictationHandler(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.dictate(w, r, req.Transcript)
}

func (h *APIHandler) PostPendingVoiceHandler(w http.ResponseWriter, r *http.Request) {
	transcript, ok := h.listen(w, r)
	if !ok {
		return
	}
	h.dictate(w, r, transcript)
}

func (h *APIHandler) dictate(w http.ResponseWriter, r *http.Request, transcript string) {
	value, err := h.foodLog.DictateCalories(r.Context(), transcript)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DictationResponse{Value: value})
}
