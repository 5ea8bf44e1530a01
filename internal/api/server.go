//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package api serves the read queries over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/query"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
)

// Reader is the query surface the server exposes.
type Reader interface {
	Execute(ctx context.Context, req query.Request) (query.Result, error)
	SalesTrend(ctx context.Context) ([]query.TrendPoint, error)
	FamilyNames(ctx context.Context) ([]query.Family, error)
	SummaryBy(ctx context.Context, g summary.Grouping, years []int) ([]query.SummaryRow, error)
}

// DefaultRequestTimeout bounds the database work of a single request.
const DefaultRequestTimeout = 30 * time.Second

// Server is the HTTP front end.
type Server struct {
	app      *fiber.App
	reader   Reader
	validate *validator.Validate
	timeout  time.Duration
}

// New builds a server with its routes registered.
func New(reader Reader) *Server {
	s := &Server{
		reader:   reader,
		validate: validator.New(),
		timeout:  DefaultRequestTimeout,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "pgedge-salesetl",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s.app.Use(s.requestLogger)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	v1 := s.app.Group("/api/v1")
	v1.Get("/families", s.getFamilies)
	v1.Get("/trends", s.getTrends)
	v1.Get("/summary/:grouping", s.getSummary)
	v1.Get("/sales", s.getSales)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	logging.Info().Str("listen", addr).Msg("Serving queries")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logging.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()
	c.SetUserContext(ctx)

	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	logging.Debug().
		Str("method", c.Method()).
		Str("path", c.OriginalURL()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("Request")
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logging.Error().Err(err).Str("path", c.OriginalURL()).Msg("Request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
