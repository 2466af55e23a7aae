package controller

import (
	"errors"
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-desk-lookup/app/dto/http"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type SessionController struct {
	sessionService *service.SessionService
}

func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

func (c *SessionController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	result, err := c.sessionService.Login(req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			logrus.WithField("remote_ip", ctx.RealIP()).Warn("Login failed: invalid password")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid password"})
		}
		logrus.WithError(err).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("remote_ip", ctx.RealIP()).Info("Operator session opened")
	return ctx.JSON(http.StatusOK, httpdto.SessionResponse{Token: result.Token, ExpiresIn: result.ExpiresIn})
}
