// Package server exposes the runtime over HTTP, with server-sent events
// for streaming runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/inboxd/inboxd/pkg/api"
	"github.com/inboxd/inboxd/pkg/run"
	"github.com/inboxd/inboxd/pkg/runtime"
)

type Server struct {
	e     *echo.Echo
	rt    *runtime.Runtime
	store run.Store
}

func New(rt *runtime.Runtime, store run.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())

	s := &Server{
		e:     e,
		rt:    rt,
		store: store,
	}

	group := e.Group("/api")

	// Start a run, or re-enter an existing one
	group.POST("/runs", s.startRun)
	group.POST("/runs/stream", s.startRunStream)
	// Resolve a pending approval request
	group.POST("/runs/:id/resume", s.resumeRun)
	group.POST("/runs/:id/resume/stream", s.resumeRunStream)
	// Inspect runs
	group.GET("/runs", s.listRuns)
	group.GET("/runs/:id", s.getRun)
	group.DELETE("/runs/:id", s.deleteRun)

	// Health check endpoint
	group.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := http.Server{
		Handler: s.e,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("Server failed", "error", err)
		return err
	}
	return nil
}

// Handler exposes the HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) startRun(c echo.Context) error {
	var req api.StartRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	input, err := req.Input()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	r, err := s.rt.Start(c.Request().Context(), req.RunID, input, nil)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, api.ResponseFor(r))
}

func (s *Server) resumeRun(c echo.Context) error {
	var req api.ResumeRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	decision := run.HumanDecision{Type: run.DecisionType(req.Type), Args: req.Args}
	r, err := s.rt.Resume(c.Request().Context(), c.Param("id"), decision, nil)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, api.ResponseFor(r))
}

func (s *Server) startRunStream(c echo.Context) error {
	var req api.StartRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	input, err := req.Input()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return s.stream(c, func(ctx context.Context, events chan<- runtime.Event) error {
		_, err := s.rt.Start(ctx, req.RunID, input, events)
		return err
	})
}

func (s *Server) resumeRunStream(c echo.Context) error {
	var req api.ResumeRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	decision := run.HumanDecision{Type: run.DecisionType(req.Type), Args: req.Args}
	return s.stream(c, func(ctx context.Context, events chan<- runtime.Event) error {
		_, err := s.rt.Resume(ctx, c.Param("id"), decision, events)
		return err
	})
}

// stream runs fn in the background and relays its events as SSE. Protocol
// errors that occur before any event was written still map to their HTTP
// status.
func (s *Server) stream(c echo.Context, fn func(ctx context.Context, events chan<- runtime.Event) error) error {
	ctx := c.Request().Context()
	events := make(chan runtime.Event, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		errCh <- fn(ctx, events)
	}()

	first, ok := <-events
	if !ok {
		// fn finished before emitting anything.
		if err := <-errCh; err != nil {
			return httpError(err)
		}
		return nil
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	if err := writeEvent(c, first); err != nil {
		return err
	}
	for event := range events {
		if err := writeEvent(c, event); err != nil {
			return err
		}
	}

	if err := <-errCh; err != nil {
		slog.Error("Streaming run failed", "error", err)
	}
	return nil
}

func writeEvent(c echo.Context, event runtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to marshal event: %v", err))
	}
	fmt.Fprintf(c.Response(), "data: %s\n\n", string(data))
	c.Response().Flush()
	return nil
}

func (s *Server) getRun(c echo.Context) error {
	r, err := s.rt.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, api.ResponseFor(r))
}

func (s *Server) listRuns(c echo.Context) error {
	runs, err := s.store.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}

	statusFilter := c.QueryParam("status")
	summaries := make([]api.RunSummary, 0, len(runs))
	for _, r := range runs {
		summary := api.SummaryFor(r)
		if statusFilter != "" && summary.Status != statusFilter {
			continue
		}
		summaries = append(summaries, summary)
	}
	return c.JSON(http.StatusOK, summaries)
}

func (s *Server) deleteRun(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "run_id": id})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, run.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, runtime.ErrInvalidState),
		errors.Is(err, runtime.ErrNoPendingApproval),
		errors.Is(err, runtime.ErrDecisionNotAllowed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, run.ErrEmptyID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
