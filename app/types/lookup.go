package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type LoginRequest struct {
	Password string `json:"password"`
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	if r.Password == "" {
		return errors.New("password is required")
	}

	return nil
}

type PlanSearchRequest struct {
	Plans []string `json:"plans"`
}

func NewPlanSearchRequestFromContext(ctx echo.Context) (*PlanSearchRequest, error) {
	var body PlanSearchRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

// Validate drops blank entries and rejects a requirement with none left.
func (r *PlanSearchRequest) Validate() error {
	plans := make([]string, 0, len(r.Plans))
	for _, plan := range r.Plans {
		if strings.TrimSpace(plan) != "" {
			plans = append(plans, plan)
		}
	}
	if len(plans) == 0 {
		return errors.New("at least one plan is required")
	}
	r.Plans = plans

	return nil
}
