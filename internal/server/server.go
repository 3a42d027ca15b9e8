package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"aitexgen/internal/config"
	"aitexgen/internal/models"
	"aitexgen/internal/orchestrator"
	"aitexgen/internal/provider"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 120 * time.Second
	idleTimeout         = 120 * time.Second
)

type Server struct {
	cfg      config.Config
	orch     *orchestrator.Orchestrator
	registry *provider.Registry
	app      *echo.Echo
	address  string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, orch *orchestrator.Orchestrator, registry *provider.Registry) (*Server, error) {
	if orch == nil {
		return nil, errors.New("orchestrator must not be nil")
	}
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apiErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.Domain)))

	srv := &Server{
		cfg:      cfg,
		orch:     orch,
		registry: registry,
		app:      e,
		address:  fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// corsConfig pins browsers to the configured frontend origin when one is
// set; otherwise any origin may call the API.
func corsConfig(domain string) middleware.CORSConfig {
	cfg := middleware.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}
	if domain != "" {
		cfg.AllowOrigins = []string{domain}
	}
	return cfg
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/api/v1/models", s.handleModels)
	s.app.POST("/api/v1/latex/generate", s.handleGenerate)
	s.app.POST("/api/v1/latex/modify", s.handleModify)
}

type requestOptions struct {
	SplitTables bool   `json:"splitTables"`
	MathMode    bool   `json:"mathMode"`
	Model       string `json:"model"`
}

func (o requestOptions) toModel() models.Options {
	return models.Options{
		SplitTables: o.SplitTables,
		MathMode:    o.MathMode,
		Model:       strings.TrimSpace(o.Model),
	}
}

type generateRequest struct {
	Content      string         `json:"content"`
	DocumentType string         `json:"documentType"`
	Options      requestOptions `json:"options"`
}

type modifyRequest struct {
	LatexContent string         `json:"latexContent"`
	Notes        string         `json:"notes"`
	IsOmit       bool           `json:"isOmit"`
	Options      requestOptions `json:"options"`
}

type latexResponse struct {
	Success  bool   `json:"success"`
	Latex    string `json:"latex,omitempty"`
	Error    string `json:"error,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

func fromResult(result models.LatexResult) latexResponse {
	return latexResponse{
		Success:  result.Success,
		Latex:    result.Latex,
		Error:    result.Error,
		Provider: result.Provider,
		Model:    result.Model,
	}
}

type modelEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	MinTier  string `json:"minTier"`
}

type modelsResponse struct {
	Tier   string       `json:"tier"`
	Models []modelEntry `json:"models"`
}

type providerStatus struct {
	Name        string `json:"name"`
	Available   bool   `json:"available"`
	RateLimited bool   `json:"rateLimited"`
}

type healthResponse struct {
	Status    string           `json:"status"`
	Providers []providerStatus `json:"providers"`
}

func (s *Server) handleHealth(c echo.Context) error {
	snapshot := s.registry.Snapshot()
	resp := healthResponse{
		Status:    "ok",
		Providers: make([]providerStatus, 0, len(snapshot)),
	}
	for _, st := range snapshot {
		resp.Providers = append(resp.Providers, providerStatus{
			Name:        st.Name,
			Available:   st.Available,
			RateLimited: st.RateLimited,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleModels(c echo.Context) error {
	tierParam := c.QueryParam("tier")
	if tierParam == "" {
		tierParam = models.TierFree.String()
	}

	tier, err := models.ParseTier(tierParam)
	if err != nil {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	}

	infos := s.registry.ModelsForTier(tier)
	resp := modelsResponse{
		Tier:   tier.String(),
		Models: make([]modelEntry, 0, len(infos)),
	}
	for _, info := range infos {
		resp.Models = append(resp.Models, modelEntry{
			ID:       info.ID,
			Provider: info.Provider,
			MinTier:  info.MinTier.String(),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleGenerate turns plain text into a LaTeX document. Provider exhaustion
// is a well-formed response with success false, not an HTTP error.
func (s *Server) handleGenerate(c echo.Context) error {
	var req generateRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Content) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "content is required",
			Type:    "invalid_request_error",
		}
	}

	domainReq := models.NewGenerateRequest(req.Content, req.DocumentType, req.Options.toModel())
	result := s.orch.Generate(c.Request().Context(), domainReq)
	return c.JSON(http.StatusOK, fromResult(result))
}

func (s *Server) handleModify(c echo.Context) error {
	var req modifyRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.LatexContent) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "latexContent is required",
			Type:    "invalid_request_error",
		}
	}
	if strings.TrimSpace(req.Notes) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "notes is required",
			Type:    "invalid_request_error",
		}
	}

	domainReq := models.NewModifyRequest(req.LatexContent, req.Notes, req.IsOmit, req.Options.toModel())
	result := s.orch.Modify(c.Request().Context(), domainReq)
	return c.JSON(http.StatusOK, fromResult(result))
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func apiErrorHandler(err error, c echo.Context) {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		_ = writeError(c, echoErr.Code, fmt.Sprintf("%v", echoErr.Message), "invalid_request_error", "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("aitexgen ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/v1/models?tier=free")
	fmt.Println("  POST /api/v1/latex/generate")
	fmt.Println("  POST /api/v1/latex/modify")
	fmt.Printf("Example:\n  curl http://%s:%d/api/v1/latex/generate -H 'Content-Type: application/json' -d '{\"content\":\"Jane Doe, software engineer\",\"documentType\":\"resume\"}'\n\n", host, port)
}
