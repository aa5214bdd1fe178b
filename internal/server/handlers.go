package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/model"
	"github.com/verte-zerg/flashvocab/internal/sheet"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type uploadResponse struct {
	Message string `json:"message"`
	model.ImportResult
}

type learnedRequest struct {
	Learned bool `json:"learned"`
}

type learnedResponse struct {
	Message string `json:"message"`
	Learned bool   `json:"learned"`
}

type resetResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type reorderRequest struct {
	OrderedIDs json.RawMessage `json:"orderedIds"`
}

// GET /api/health
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

// GET /api/vocabulary/sets
func (s *Server) listSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.ListSets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sets == nil {
		sets = []model.SetSummary{}
	}
	writeJSON(w, http.StatusOK, sets)
}

// GET /api/vocabulary/sets/{id}
func (s *Server) getSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	includeAll := r.URL.Query().Get("includeAll") == "true"
	detail, err := s.store.GetSet(r.Context(), id, includeAll)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if detail.Cards == nil {
		detail.Cards = []model.Flashcard{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// PATCH /api/vocabulary/sets/{id}
func (s *Server) updateSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch model.SetPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	set, err := s.store.UpdateSet(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// DELETE /api/vocabulary/sets/{id}
func (s *Server) deleteSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteSet(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Vocabulary set deleted successfully"})
}

// POST /api/vocabulary/sets/{id}/reset
func (s *Server) resetSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	count, err := s.store.ResetSet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Message: "All flashcards reset successfully", Count: count})
}

// POST /api/vocabulary/sets/reorder
func (s *Server) reorderSets(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	var ids []int64
	trimmed := strings.TrimSpace(string(req.OrderedIDs))
	if !strings.HasPrefix(trimmed, "[") || json.Unmarshal(req.OrderedIDs, &ids) != nil {
		s.writeError(w, r, model.Invalidf("orderedIds must be an array"))
		return
	}
	if err := s.store.ReorderSets(r.Context(), ids); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Sets reordered successfully"})
}

// PATCH /api/vocabulary/flashcards/{id}/learned
func (s *Server) setCardLearned(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req learnedRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetCardLearned(r.Context(), id, req.Learned); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, learnedResponse{Message: "Flashcard updated successfully", Learned: req.Learned})
}

// POST /api/vocabulary/upload
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, model.Invalidf("file exceeds %d bytes", s.opts.MaxUploadBytes))
			return
		}
		s.writeError(w, r, model.Invalidf("invalid multipart form: %v", err))
		return
	}
	defer func() {
		// Best-effort cleanup of spooled parts.
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, model.Invalidf("No file uploaded"))
		return
	}
	defer func() {
		// Best-effort close.
		_ = file.Close()
	}()

	format, err := sheet.FormatFromName(header.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := sheet.Read(file, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = sheet.SetNameFromFile(header.Filename)
	}
	res, err := s.store.ImportSet(r.Context(), name, r.FormValue("description"), rows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("set imported",
		zap.Int64("set_id", res.SetID),
		zap.Int("card_count", res.CardCount),
		zap.String("request_id", RequestID(r.Context())),
	)
	writeJSON(w, http.StatusCreated, uploadResponse{Message: "Vocabulary set created successfully", ImportResult: res})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Invalidf("invalid id %q", raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.Invalidf("invalid JSON body: %v", err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Best-effort: the status line is already written.
	_ = json.NewEncoder(w).Encode(v)
}
