package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

type questionRequest struct {
	Question string `json:"question"`
	models.QueryOptions
}

type ingestRequest struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("query request",
		zap.String("question", req.Question),
		zap.Int("top_k", req.TopK),
		zap.Bool("rerank", req.Rerank))
	opts := req.QueryOptions
	result := s.orchestrator.Query(r.Context(), req.Question, &opts)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRelevantDocs(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	opts := req.QueryOptions
	docs, err := s.orchestrator.RetrieveDocuments(r.Context(), req.Question, &opts)
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, &models.RetrievalResponse{
		Question:   req.Question,
		Documents:  docs,
		TotalCount: len(docs),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "texts is required")
		return
	}
	s.logger.Debug("ingest request", zap.String("source", req.Source), zap.Int("texts", len(req.Texts)))
	report, err := s.indexer.IngestTexts(r.Context(), req.Texts, req.Source)
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("rebuild request")
	if err := s.indexer.Rebuild(r.Context()); err != nil {
		s.logger.Error("rebuild failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Connectivity check only; no query runs against the collection.
	if _, err := s.store.Count(r.Context()); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vectorCount, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("status: count vectors failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"vector_count": vectorCount,
	}

	if s.catalog != nil {
		sources, err := s.catalog.CountSources(ctx)
		if err != nil {
			s.logger.Error("status: count sources failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunks, err := s.catalog.CountChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["sources"] = sources
		resp["chunks"] = chunks
		if recent, err := s.catalog.ListRecent(ctx, 10); err == nil {
			resp["recent_ingests"] = recent
		}
	}

	resp["config"] = map[string]interface{}{
		"collection":           s.config.Qdrant.Collection,
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"llm_model":            s.config.LLM.Model,
		"split_strategy":       s.config.Split.Strategy,
		"top_k":                s.config.Query.TopK,
		"rerank_enabled":       s.config.Rerank.URL != "",
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
