package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"webscout/extract"
	"webscout/search"
)

type searchRequest struct {
	Query            string   `json:"query"`
	Count            int      `json:"count,omitempty"`
	Domains          []string `json:"domains,omitempty"`
	FetchContent     bool     `json:"fetch_content,omitempty"`
	MaxContentLength int      `json:"max_content_length,omitempty"`
}

type searchResponse struct {
	Engine  string          `json:"engine"`
	Results []search.Result `json:"results"`
}

type extractRequest struct {
	URL              string `json:"url"`
	MaxContentLength int    `json:"max_content_length,omitempty"`
	Format           string `json:"format,omitempty"`
}

type extractResponse struct {
	URL       string `json:"url"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SearchHandler serves POST /api/search.
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if search.SanitizeQuery(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter")
		return
	}
	count := req.Count
	if count == 0 {
		count = s.defaultCount
	}

	resp, err := s.orchestrator.Search(r.Context(), search.Query{
		Text:    req.Query,
		Count:   count,
		Domains: req.Domains,
	})
	if err != nil {
		var searchErr *search.SearchError
		if errors.As(err, &searchErr) {
			s.logger.Error("search failed across all providers", zap.Error(err))
			writeError(w, http.StatusBadGateway, searchErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := resp.Results
	if req.FetchContent {
		results = s.extractor.ExtractForResults(r.Context(), results, len(results), true)
		// Length bounding is this layer's job; the extractor hands back
		// full cleaned text.
		if req.MaxContentLength > 0 {
			for i := range results {
				if results[i].FullContent != "" {
					results[i].FullContent = extract.CleanText(results[i].FullContent, req.MaxContentLength)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, searchResponse{Engine: resp.EngineID, Results: results})
}

// ExtractHandler serves POST /api/extract.
func (s *Server) ExtractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	format := extract.FormatText
	if req.Format != "" {
		format = extract.Format(req.Format)
		if format != extract.FormatText && format != extract.FormatMarkdown {
			writeError(w, http.StatusBadRequest, "format must be text or markdown")
			return
		}
	}

	content, err := s.extractor.ExtractContent(r.Context(), extract.ContentRequest{
		URL:              req.URL,
		MaxContentLength: req.MaxContentLength,
		Format:           format,
	})
	if err != nil {
		status := http.StatusInternalServerError
		var contentErr *extract.ContentError
		if errors.As(err, &contentErr) {
			switch contentErr.Kind {
			case extract.ContentKindTimeout:
				status = http.StatusGatewayTimeout
			case extract.ContentKindBlocked, extract.ContentKindNetwork,
				extract.ContentKindDNS, extract.ContentKindSSL:
				status = http.StatusBadGateway
			case extract.ContentKindTooLarge:
				status = http.StatusUnprocessableEntity
			}
		}
		s.logger.Warn("content extraction failed",
			zap.String("url", req.URL),
			zap.Error(err))
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		URL:       req.URL,
		Content:   content,
		WordCount: extract.CountWords(content),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
