package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/ragqa/internal/extract"
	"github.com/hyperjump/ragqa/internal/models"
	"github.com/hyperjump/ragqa/internal/qa"
	"github.com/hyperjump/ragqa/internal/storage"
	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

const (
	uploadField         = "document"
	defaultListLimit    = 50
	maxListLimit        = 500
	defaultHistoryLimit = 5
	maxHistoryLimit     = 100
)

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "document is too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "multipart field \"document\" is required")
		return
	}
	defer file.Close()

	s.logger.Debug("upload request", zap.String("name", header.Filename), zap.Int64("size", header.Size))
	if !s.indexer.Allowed(header.Filename) {
		s.respondError(w, http.StatusBadRequest, "unsupported document type; allowed: "+joinExtensions(s.config.Ingest.Extensions))
		return
	}
	out, err := s.indexer.IngestUpload(r.Context(), header.Filename, file)
	if out == nil {
		s.logger.Error("upload failed", zap.Error(err))
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.IngestResponse{Document: out.Document}
	if out.Result != nil {
		resp.Stage = out.Result.Stage.String()
		resp.Chunks = out.Result.Chunks
		for _, issue := range out.Result.Issues {
			resp.Issues = append(resp.Issues, issue.String())
		}
	}
	if err != nil {
		resp.Message = "Document could not be processed: " + err.Error()
		s.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	resp.Message = "Document uploaded and processed successfully!"
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	params := models.ListParams{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 0),
	}
	params.Normalize(defaultListLimit, maxListLimit)
	ctx := r.Context()
	docs, err := s.storage.ListDocuments(ctx, params.Offset, params.Limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, models.DocumentList{Documents: docs, Total: total})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.AskResponse{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.AskResponse{Answer: qa.BlankQuestionAnswer, Error: err.Error()})
		return
	}
	s.logger.Debug("ask request", zap.String("question", utils.Truncate(req.Question, 80)))
	answer := s.asker.Ask(r.Context(), req.Question)

	entry := &models.ChatEntry{Question: req.Question, Answer: answer, CreatedAt: time.Now().UTC()}
	if err := s.storage.AddChatEntry(r.Context(), entry); err != nil {
		s.logger.Warn("failed to save chat entry", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, models.AskResponse{Answer: answer, Success: true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	params := models.ListParams{Limit: queryInt(r, "limit", 0)}
	params.Normalize(defaultHistoryLimit, maxHistoryLimit)
	ctx := r.Context()
	entries, err := s.storage.ListChatEntries(ctx, params.Limit)
	if err != nil {
		s.logger.Error("list chat entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountChatEntries(ctx)
	if err != nil {
		s.logger.Error("count chat entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.ChatEntry{}
	}
	s.respondJSON(w, http.StatusOK, models.History{Entries: entries, Total: total})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chatCount, err := s.storage.CountChatEntries(ctx)
	if err != nil {
		s.logger.Error("status: count chat entries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := s.engine.Stats()
	status := models.Status{
		Documents:   docCount,
		ChatEntries: chatCount,
		Chunks:      stats.Chunks,
		Vectors:     stats.Vectors,
		Dimensions:  stats.Dimensions,
		IndexType:   stats.IndexType,
		TopK:        s.engine.TopK(),
	}
	if s.ready != nil {
		status.EmbeddingReady = s.ready()
	}
	if diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.UploadDir); err == nil {
		status.DiskUsageBytes = diskBytes
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func joinExtensions(exts []string) string {
	if len(exts) == 0 {
		return "pdf, docx, txt"
	}
	return strings.Join(exts, ", ")
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
