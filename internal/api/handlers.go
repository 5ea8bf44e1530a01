//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pgEdge/pgedge-salesetl/internal/query"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
)

// salesParams are the query parameters of /api/v1/sales.
type salesParams struct {
	Store  *int `query:"store" validate:"omitempty,min=1"`
	Family *int `query:"family" validate:"omitempty,min=1"`
	Day    *int `query:"day" validate:"omitempty,min=1,max=31"`
	Month  *int `query:"month" validate:"omitempty,min=1,max=12"`
	Year   *int `query:"year" validate:"omitempty,min=1900,max=9999"`
	Sum    bool `query:"sum"`
}

type summaryParams struct {
	Years string `query:"years" validate:"omitempty,max=200"`
}

func (s *Server) getFamilies(c *fiber.Ctx) error {
	families, err := s.reader.FamilyNames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"families": families})
}

func (s *Server) getTrends(c *fiber.Ctx) error {
	points, err := s.reader.SalesTrend(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"trend": points})
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	g, err := summary.ParseGrouping(c.Params("grouping"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	var p summaryParams
	if err := s.parse(c, &p); err != nil {
		return err
	}
	years, err := parseYears(p.Years)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rows, err := s.reader.SummaryBy(c.UserContext(), g, years)
	if err != nil {
		return queryError(err)
	}
	return c.JSON(fiber.Map{"grouping": g, "rows": rows})
}

func (s *Server) getSales(c *fiber.Ctx) error {
	var p salesParams
	if err := s.parse(c, &p); err != nil {
		return err
	}

	req, err := query.Resolve(query.Filter{
		Family:  p.Family,
		Day:     p.Day,
		Month:   p.Month,
		Year:    p.Year,
		Store:   p.Store,
		WantSum: p.Sum,
	})
	if err != nil {
		return queryError(err)
	}

	res, err := s.reader.Execute(c.UserContext(), req)
	if err != nil {
		return queryError(err)
	}
	return c.JSON(res)
}

// parse decodes and validates the query string into dst.
func (s *Server) parse(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("invalid %s: failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parseYears(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var years []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}

func queryError(err error) error {
	if errors.Is(err, query.ErrUnsupportedFilter) || errors.Is(err, query.ErrYearOutOfRange) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return err
}
