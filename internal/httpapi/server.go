// Package httpapi exposes the coordinator to a real extension over loopback.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/wordpop"
	"github.com/ZaguanLabs/wordpop/bridge"
)

const maxBodyBytes = 64 << 10

type Options struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	AllowedOrigins    []string
	TranslateWatchdog time.Duration // Coordinator's watchdog; zero means bridge.TranslateWatchdog
}

type Server struct {
	coordinator *bridge.Coordinator
	outbox      *bridge.Outbox
	logger      zerolog.Logger
	opts        Options
}

// senderJSON is the origin the extension attaches to each posted message.
type senderJSON struct {
	TabID *int   `json:"tabId"`
	URL   string `json:"url"`
}

type postedMessage struct {
	Sender *senderJSON `json:"sender"`
}

func NewServer(coordinator *bridge.Coordinator, outbox *bridge.Outbox, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := opts.Port
	if port <= 0 {
		port = 8787
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// A translate request may wait for the full watchdog.
	watchdog := opts.TranslateWatchdog
	if watchdog <= 0 {
		watchdog = bridge.TranslateWatchdog
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= watchdog {
		writeTimeout = watchdog + 5*time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		coordinator: coordinator,
		outbox:      outbox,
		logger:      logger,
		opts: Options{
			Host:              host,
			Port:              port,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			ShutdownTimeout:   shutdownTimeout,
			AllowedOrigins:    origins,
			TranslateWatchdog: watchdog,
		},
	}
}

// Handler builds the routed echo instance.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(strconv.Itoa(maxBodyBytes / 1024) + "K"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/v1")
	api.POST("/messages", s.handleMessage)
	api.GET("/tabs/:id/messages", s.handleTabMessages)

	return e
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.coordinator == nil || s.outbox == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("wordpop daemon started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("wordpop daemon stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
	}

	_ = c.JSON(status, map[string]string{"error": message})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"service": wordpop.Name,
		"version": wordpop.FullVersion(),
	})
}

func (s *Server) handleMessage(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read body")
	}

	env, err := bridge.Decode(body)
	if err != nil {
		if errors.Is(err, bridge.ErrUnknownKind) {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown message type")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed message")
	}

	var posted postedMessage
	if err := json.Unmarshal(body, &posted); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed sender")
	}
	sender := bridge.Sender{}
	if posted.Sender != nil && posted.Sender.TabID != nil {
		sender = bridge.FromTab(*posted.Sender.TabID, posted.Sender.URL)
	}

	var (
		answer  any
		replied bool
	)
	var reply bridge.Reply
	if env.Expects() {
		reply = func(v any) error {
			answer, replied = v, true
			return nil
		}
	}

	s.coordinator.Handle(c.Request().Context(), sender, env, reply)

	if !replied {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) handleTabMessages(c echo.Context) error {
	tabID, err := strconv.Atoi(c.Param("id"))
	if err != nil || tabID < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid tab id")
	}

	pushes := s.outbox.Drain(tabID)
	items := make([]json.RawMessage, 0, len(pushes))
	for _, p := range pushes {
		data, err := bridge.Encode(bridge.Envelope{Message: p})
		if err != nil {
			s.logger.Error().Err(err).Int("tab", tabID).Msg("encoding push")
			continue
		}
		items = append(items, data)
	}

	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
