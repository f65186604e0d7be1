// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Veraticus/salary-disbursement/internal/config"
	"github.com/Veraticus/salary-disbursement/internal/model"
	"github.com/Veraticus/salary-disbursement/internal/service"
)

// Pipeline is the processing surface the handlers drive.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, fileName string) (*model.Acknowledgement, error)
	ProcessBatch(ctx context.Context, batch *model.SalaryBatch, source string) (*model.Acknowledgement, error)
	Receive(ctx context.Context, raw []byte, fileName string) (*model.SalaryBatch, *model.Acknowledgement, error)
	Continue(ctx context.Context, batch *model.SalaryBatch, source string) (*model.Acknowledgement, error)
	Approve(ctx context.Context, batchID string) (*model.Acknowledgement, error)
	CheckStatus(ctx context.Context, batchID string, record bool) (model.SettlementOutcome, *model.Acknowledgement, error)
}

// Store is the read side the handlers query directly.
type Store interface {
	service.AckStore
	service.Roster
}

// Server is the HTTP trigger surface.
type Server struct {
	pipeline Pipeline
	store    Store
	engine   *gin.Engine
	cfg      config.ServerConfig
	cert     *tls.Certificate
	// background tracks asynchronous pipeline runs started by uploads.
	background sync.WaitGroup
}

// New builds the gin engine and registers routes.
func New(cfg config.ServerConfig, pipeline Pipeline, store Store) *Server {
	s := &Server{
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	if len(cfg.CORSOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	s.engine = engine
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.health)

	salary := api.Group("/salary")
	salary.POST("/upload", s.upload)
	salary.POST("/process", s.processBatch)
	salary.POST("/approve/:batchId", s.approve)
	salary.GET("/acknowledgements", s.listAcknowledgements)
	salary.GET("/acknowledgements/:batchId", s.getAcknowledgement)
	salary.GET("/acknowledgements/:batchId/history", s.getHistory)
	salary.GET("/status/:batchId", s.status)

	employees := api.Group("/employees")
	employees.POST("", s.saveEmployee)
	employees.GET("", s.listEmployees)
	employees.GET("/:employeeId", s.getEmployee)
}

// EnableTLS makes Run serve HTTPS with cert.
func (s *Server) EnableTLS(cert tls.Certificate) {
	s.cert = &cert
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains requests and background runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve := srv.ListenAndServe
	if s.cert != nil {
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.cert},
			MinVersion:   tls.VersionTLS12,
		}
		serve = func() error { return srv.ListenAndServeTLS("", "") }
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.cfg.Addr, "tls", s.cert != nil)
		if err := serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("Waiting for background pipeline runs")
	s.Wait()
	return nil
}

// Wait blocks until every asynchronous pipeline run has finished.
func (s *Server) Wait() {
	s.background.Wait()
}

func (s *Server) runAsync(batch *model.SalaryBatch, source string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ack, err := s.pipeline.Continue(context.Background(), batch, source)
		if err != nil {
			slog.Error("Background pipeline run failed", "batch_id", batch.BatchID, "error", err)
			return
		}
		slog.Info("Background pipeline run finished", "batch_id", batch.BatchID, "status", ack.Status)
	}()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
