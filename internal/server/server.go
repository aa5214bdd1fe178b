// Package server exposes a card store over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/verte-zerg/flashvocab/internal/model"
)

const (
	defaultAddr       = ":3001"
	defaultMaxUpload  = 10 << 20
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// CardStore is the full card store the API serves.
type CardStore interface {
	ListSets(ctx context.Context) ([]model.SetSummary, error)
	GetSet(ctx context.Context, id int64, includeAll bool) (model.SetDetail, error)
	ImportSet(ctx context.Context, name, description string, rows []model.Row) (model.ImportResult, error)
	DeleteSet(ctx context.Context, id int64) error
	UpdateSet(ctx context.Context, id int64, patch model.SetPatch) (model.VocabularySet, error)
	SetCardLearned(ctx context.Context, cardID int64, learned bool) error
	ResetSet(ctx context.Context, id int64) (int64, error)
	ReorderSets(ctx context.Context, orderedIDs []int64) error
}

// Options configures a Server. Zero values select defaults.
type Options struct {
	Addr           string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server is the HTTP API.
type Server struct {
	store CardStore
	log   *zap.Logger
	opts  Options
	now   func() time.Time
}

// New builds a server. A nil logger disables logging.
func New(store CardStore, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = defaultAddr
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	return &Server{store: store, log: log, opts: opts, now: time.Now}
}

// Handler returns the routed API with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.health)

	// Sets
	mux.HandleFunc("GET /api/vocabulary/sets", s.listSets)
	mux.HandleFunc("GET /api/vocabulary/sets/{id}", s.getSet)
	mux.HandleFunc("PATCH /api/vocabulary/sets/{id}", s.updateSet)
	mux.HandleFunc("DELETE /api/vocabulary/sets/{id}", s.deleteSet)
	mux.HandleFunc("POST /api/vocabulary/sets/{id}/reset", s.resetSet)
	mux.HandleFunc("POST /api/vocabulary/sets/reorder", s.reorderSets)
	mux.HandleFunc("POST /api/vocabulary/upload", s.upload)

	// Flashcards
	mux.HandleFunc("PATCH /api/vocabulary/flashcards/{id}/learned", s.setCardLearned)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	})
	return corsHandler.Handler(s.requestID(s.logRequests(s.recoverPanics(mux))))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
