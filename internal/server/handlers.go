package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"receipt-lens/internal/encoding"
	"receipt-lens/internal/flow"
	"receipt-lens/internal/ocr"
	"receipt-lens/internal/report"
)

// maxUploadSize allows high-resolution phone photos.
const maxUploadSize = int64(50 << 20) // 50MB

const defaultSession = "default"

// captureStatus is what the capture and verification screens poll: the
// flow stage plus, once terminal, the text or the error translated into
// user guidance.
type captureStatus struct {
	Session   string `json:"session"`
	State     string `json:"state"`
	Attempt   uint64 `json:"attempt,omitempty"`
	Text      string `json:"text,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Hint      string `json:"hint,omitempty"`
}

func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

// session identifies the client's flow. The mobile app sends it in the
// X-Session header; a query parameter works for manual testing.
func session(r *http.Request) string {
	if s := r.Header.Get("X-Session"); s != "" {
		return s
	}
	if s := r.URL.Query().Get("session"); s != "" {
		return s
	}
	return defaultSession
}

// userHint translates a classified attempt failure into the guidance the
// report screen shows.
func userHint(err error) string {
	switch flow.Classify(err) {
	case flow.KindNetwork:
		return "Check your connection and try again."
	case flow.KindEncoding, flow.KindMalformed:
		return "Try taking a clearer photo."
	case flow.KindConfiguration:
		return "The app is misconfigured: no recognition endpoint is set."
	case flow.KindServer:
		var serverErr *ocr.ServerError
		if errors.As(err, &serverErr) && serverErr.Temporary() {
			return "The recognition service is unavailable right now. Try again later."
		}
		return "The recognition service rejected this photo."
	}
	return "Something went wrong. Try again."
}

func snapshotStatus(sess string, fl *flow.Flow) captureStatus {
	status := captureStatus{
		Session: sess,
		State:   fl.State().String(),
		Attempt: fl.Attempt(),
	}
	if res, ok := fl.Result(); ok {
		if res.Err != nil {
			status.ErrorKind = string(res.Kind())
			status.Hint = userHint(res.Err)
		} else {
			status.Text = res.Text
		}
	}
	return status
}

// handleUploadCapture receives a photo, stores it, and starts a recognition
// attempt on the session's flow.
func (s *Server) handleUploadCapture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Error().Err(err).Msg("error parsing multipart form")
		corsError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		corsError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		corsError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("error reading upload")
		corsError(w, "Error reading file", http.StatusInternalServerError)
		return
	}
	mime := encoding.DetectMIME(header.Filename, data)
	if !strings.HasPrefix(mime, "image/") && mime != "application/pdf" {
		corsError(w, "Unsupported file type. Supported: JPEG, PNG, GIF, HEIC, PDF.", http.StatusBadRequest)
		return
	}

	name, err := s.storage.Save(fmt.Sprintf("%d_%s", time.Now().UnixNano(), header.Filename), data)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("error storing capture")
		corsError(w, "Error storing capture", http.StatusInternalServerError)
		return
	}

	sess := session(r)
	fl := s.sessions.Get(sess)

	if err := fl.Capture(s.storage.Path(name)); err != nil {
		s.storage.Delete(name)
		corsError(w, err.Error(), http.StatusConflict)
		return
	}
	// The attempt outlives this request, so it must not carry the request's
	// context.
	if err := fl.Submit(context.Background()); err != nil {
		corsError(w, err.Error(), http.StatusConflict)
		return
	}

	log.Info().
		Str("session", sess).
		Uint64("attempt", fl.Attempt()).
		Str("filename", header.Filename).
		Msg("capture submitted")

	writeJSON(w, http.StatusAccepted, snapshotStatus(sess, fl))
}

// handleCurrentCapture reports the session's flow state.
func (s *Server) handleCurrentCapture(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	writeJSON(w, http.StatusOK, snapshotStatus(sess, s.sessions.Get(sess)))
}

// handleResetCapture abandons the session's current attempt.
func (s *Server) handleResetCapture(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	s.sessions.Get(sess).Reset()
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleListAttempts returns all recorded attempts, newest first.
func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.reports.ListAttempts()
	if err != nil {
		log.Error().Err(err).Msg("error listing attempts")
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if attempts == nil {
		attempts = []*report.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

// handleGetAttempt returns a single recorded attempt.
func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	attempt, err := s.reports.GetAttempt(id)
	if err != nil {
		corsError(w, "Attempt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

type verifyRequest struct {
	Text string `json:"text"`
}

// handleVerifyAttempt marks an attempt's text as confirmed by the user.
func (s *Server) handleVerifyAttempt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	attempt, err := s.reports.Verify(id, req.Text)
	if err != nil {
		corsError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, attempt)
}

// handleDeleteAttempt removes a recorded attempt.
func (s *Server) handleDeleteAttempt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.reports.DeleteAttempt(id); err != nil {
		corsError(w, "Error deleting attempt", http.StatusInternalServerError)
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}
