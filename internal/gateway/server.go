package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/set-night/coworker/internal/service"
)

const basePath = "/chatbot/api"

// Server exposes the backend to browser clients under /chatbot/api, checking
// every request before it is forwarded.
type Server struct {
	api      service.API
	mock     bool
	validate *validator.Validate
}

func New(api service.API, mock bool) *Server {
	return &Server{api: api, mock: mock, validate: newValidator()}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(basePath)
	api.POST("/answer", s.handleAnswer)
	api.GET("/employees", s.handleEmployees)
	api.GET("/me", s.handleMe)
	api.POST("/get_manned_counter", s.handleMannedCounters)
	api.POST("/send-mail", s.handleSendMail)
	api.POST("/submit-feedback", s.handleSubmitFeedback)
	api.DELETE("/delete-feedback", s.handleDeleteFeedback)
	api.POST("/chunk-highlighter", s.handleChunkHighlighter)
	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		observe(c.Request.Method, c.FullPath(), c.Writer.Status(), elapsed.Seconds())
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// backendFailure reports a failed backend call as 500 with the backend's
// message when it sent one.
func backendFailure(c *gin.Context, op string, err error) {
	slog.Error("backend call failed", "op", op, "error", err)
	msg := err.Error()
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
