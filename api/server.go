package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"webscout/extract"
	"webscout/search"
)

// Server is the JSON gateway in front of the search orchestrator and the
// content extractor.
type Server struct {
	orchestrator *search.Orchestrator
	extractor    *extract.Extractor
	logger       *zap.Logger
	httpServer   *http.Server
	defaultCount int
}

func NewServer(orchestrator *search.Orchestrator, extractor *extract.Extractor, logger *zap.Logger, port, defaultCount int) *Server {
	s := &Server{
		orchestrator: orchestrator,
		extractor:    extractor,
		logger:       logger,
		defaultCount: defaultCount,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.SearchHandler)
	mux.HandleFunc("/api/extract", s.ExtractHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
