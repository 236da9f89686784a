package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"scorelib/cache"
	"scorelib/config"
	"scorelib/logger"
	"scorelib/model"
	"scorelib/repository"
	"scorelib/storage"

	"github.com/gorilla/mux"
)

// APIHandler carries the injected stores for all HTTP handlers.
type APIHandler struct {
	scoreRepo repository.ScoreRepository
	blobs     storage.BlobStore
	listCache *cache.ScoreCache
	cfg       *config.Config
}

// NewAPIHandler creates the handler set. listCache may be nil to run
// without Redis.
func NewAPIHandler(scoreRepo repository.ScoreRepository, blobs storage.BlobStore, listCache *cache.ScoreCache, cfg *config.Config) *APIHandler {
	return &APIHandler{
		scoreRepo: scoreRepo,
		blobs:     blobs,
		listCache: listCache,
		cfg:       cfg,
	}
}

// parseACappella maps the a_cappella form/query value onto a bool. The
// original web client sends "1"/"0"; ParseBool also accepts true/false.
func parseACappella(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

// GetScoresHandler lists scores matching the optional free-text term and
// a-cappella filter, newest first.
func (h *APIHandler) GetScoresHandler(w http.ResponseWriter, r *http.Request) {
	query := repository.SearchQuery{Term: r.URL.Query().Get("q")}

	if raw := r.URL.Query().Get("a_cappella"); raw != "" {
		val, err := parseACappella(raw)
		if err != nil {
			http.Error(w, "Invalid a_cappella parameter", http.StatusBadRequest)
			return
		}
		query.ACappella = &val
	}

	if scores, ok := h.listCache.GetListing(r.Context(), query); ok {
		respondJSON(w, http.StatusOK, scores)
		return
	}

	scores, err := h.scoreRepo.SearchScores(query)
	if err != nil {
		logger.Error("failed to fetch scores", logger.ErrorField(err))
		http.Error(w, "Failed to fetch scores", http.StatusInternalServerError)
		return
	}

	h.listCache.SetListing(r.Context(), query, scores)
	respondJSON(w, http.StatusOK, scores)
}

// UploadScoreHandler ingests one submission end to end: validate the
// metadata and file, write the file to blob storage, insert the metadata
// row, and return the assigned id together with the stored blob key.
func (h *APIHandler) UploadScoreHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.ContentLength > h.cfg.MaxUploadBytes {
		logger.Warn("request body over upload cap",
			logger.Int64("contentLength", r.ContentLength),
			logger.Int64("maxBytes", h.cfg.MaxUploadBytes))
		http.Error(w, fmt.Sprintf("Request too large. Maximum size is %d MB", h.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logger.Error("failed to parse upload form", logger.ErrorField(err))
		http.Error(w, "Failed to parse upload form", http.StatusBadRequest)
		return
	}

	title := r.FormValue("title")
	arranger := r.FormValue("arranger")
	style := r.FormValue("style")
	tempo := r.FormValue("tempo")
	for name, value := range map[string]string{
		"title": title, "arranger": arranger, "style": style, "tempo": tempo,
	} {
		if value == "" {
			http.Error(w, fmt.Sprintf("Missing '%s' in form", name), http.StatusBadRequest)
			return
		}
	}

	aCappella := false
	if raw := r.FormValue("a_cappella"); raw != "" {
		val, err := parseACappella(raw)
		if err != nil {
			http.Error(w, "Invalid a_cappella value", http.StatusBadRequest)
			return
		}
		aCappella = val
	}

	pdfFile, pdfHeader, err := r.FormFile("pdf")
	if err != nil {
		if err == http.ErrMissingFile {
			http.Error(w, "Missing PDF file. Please select a file to upload.", http.StatusBadRequest)
		} else {
			http.Error(w, "Failed to process uploaded file", http.StatusBadRequest)
		}
		return
	}
	defer pdfFile.Close()

	if pdfHeader.Size > h.cfg.MaxUploadBytes {
		logger.Warn("file over upload cap",
			logger.Int64("size", pdfHeader.Size),
			logger.String("filename", pdfHeader.Filename))
		http.Error(w, fmt.Sprintf("File too large. Maximum size is %d MB", h.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
		return
	}

	key, err := h.blobs.Put(r.Context(), pdfHeader.Filename, pdfFile, pdfHeader.Size, "application/pdf")
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			http.Error(w, fmt.Sprintf("File too large. Maximum size is %d MB", h.cfg.MaxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return
		}
		logger.Error("failed to store PDF", logger.ErrorField(err), logger.String("filename", pdfHeader.Filename))
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	newScore := &model.Score{
		Title:     title,
		Arranger:  arranger,
		Style:     style,
		Tempo:     tempo,
		ACappella: aCappella,
		Filename:  key,
	}

	scoreID, err := h.scoreRepo.CreateScore(newScore)
	if err != nil {
		// The blob outlives the failed insert. Accepted inconsistency;
		// log the key so a sweep can find it.
		logger.Warn("orphaned blob after failed insert", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "Failed to create score entry in database", http.StatusInternalServerError)
		return
	}

	h.listCache.Invalidate(r.Context())

	logger.Info("score uploaded",
		logger.Int64("id", scoreID),
		logger.String("title", title),
		logger.String("key", key),
		logger.Int64("size", pdfHeader.Size),
		logger.Duration("elapsed", time.Since(start)))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       scoreID,
		"filename": key,
	})
}

// DeleteScoreHandler removes a score and its stored PDF. A blob deletion
// failure is logged but does not abort the row deletion: an orphaned blob
// is less harmful than an undeletable record.
func (h *APIHandler) DeleteScoreHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid score id", http.StatusBadRequest)
		return
	}

	score, err := h.scoreRepo.GetScoreByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Score not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to look up score", logger.Int64("id", id), logger.ErrorField(err))
		http.Error(w, "Failed to look up score", http.StatusInternalServerError)
		return
	}

	if err := h.blobs.Remove(r.Context(), score.Filename); err != nil {
		logger.Warn("failed to remove blob, deleting record anyway",
			logger.Int64("id", id),
			logger.String("key", score.Filename),
			logger.ErrorField(err))
	}

	if err := h.scoreRepo.DeleteScore(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "Score not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to delete score", logger.Int64("id", id), logger.ErrorField(err))
		http.Error(w, "Failed to delete score", http.StatusInternalServerError)
		return
	}

	h.listCache.Invalidate(r.Context())
	w.WriteHeader(http.StatusOK)
}

// ServePDFHandler streams a stored PDF by its blob key.
func (h *APIHandler) ServePDFHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["filename"]

	object, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to read blob", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if _, err := io.Copy(w, object); err != nil {
		logger.Error("error streaming PDF", logger.String("key", key), logger.ErrorField(err))
	}
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
