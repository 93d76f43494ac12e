package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coleifer/scout/internal/blobstore"
	"github.com/coleifer/scout/internal/config"
	"github.com/coleifer/scout/internal/repository"
	"github.com/coleifer/scout/internal/search"
	"github.com/coleifer/scout/internal/storage"
)

// Server wires Scout's domain collaborators — index/document
// repositories, the search engine, and the blob store — to the REST
// surface, and owns the HTTP listener's lifecycle.
type Server struct {
	cfg          *config.Config
	docs         *repository.DocumentRepository
	indexes      *repository.IndexRepository
	blobs        *blobstore.Store
	engine       *search.Engine
	linker       *linker
	supportsBM25 bool

	httpServer *http.Server
}

// New builds a Server over an already-initialized database handle.
// db must already carry Scout's schema (see storage.CreateSchema).
func New(cfg *config.Config, db *sql.DB) (*Server, error) {
	blobs, err := blobstore.New(db)
	if err != nil {
		return nil, err
	}

	resolvedExtension, err := storage.GetSearchExtension(db)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve search extension: %w", err)
	}

	s := &Server{
		cfg:          cfg,
		docs:         repository.New(db, blobs),
		indexes:      repository.NewIndexRepository(db),
		blobs:        blobs,
		engine:       search.New(db),
		linker:       newLinker(cfg.URLPrefix, cfg.Authentication),
		supportsBM25: !strings.EqualFold(resolvedExtension, "FTS3"),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      withLogging(withAuth(cfg.Authentication, s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	return s, nil
}

// ListenAndServe blocks serving HTTP traffic until the server is shut
// down or a listener error occurs.
func (s *Server) ListenAndServe() error {
	log.Printf("scout: listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests, rolling back any
// transactions handlers still hold open on exit.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
