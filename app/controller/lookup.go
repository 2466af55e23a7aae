package controller

import (
	"errors"
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-desk-lookup/app/dto/http"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/entity"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/repository"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LookupController serves the plan and user lookups behind the session
// gate.
type LookupController struct {
	indexService      *service.IndexService
	matcher           service.PlanMatcher
	userSearchService *service.UserSearchService
}

func NewLookupController(
	indexService *service.IndexService,
	matcher service.PlanMatcher,
	userSearchService *service.UserSearchService,
) *LookupController {
	return &LookupController{
		indexService:      indexService,
		matcher:           matcher,
		userSearchService: userSearchService,
	}
}

func (c *LookupController) Letters(ctx echo.Context) error {
	letters, err := c.indexService.Letters()
	if err != nil {
		return sourceErrorResponse(ctx, err, "Letters lookup failed")
	}

	return ctx.JSON(http.StatusOK, httpdto.LettersResponse{Letters: letters})
}

func (c *LookupController) PlansByLetter(ctx echo.Context) error {
	letter := ctx.QueryParam("letter")
	if letter == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "letter query parameter is required"})
	}

	plans, err := c.indexService.PlansStartingWith(letter)
	if err != nil {
		if errors.Is(err, service.ErrUnknownLetter) {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "letter must not be blank"})
		}
		return sourceErrorResponse(ctx, err, "Plan listing failed")
	}

	return ctx.JSON(http.StatusOK, httpdto.PlansResponse{Letter: letter, Plans: plans})
}

func (c *LookupController) SearchPlans(ctx echo.Context) error {
	req, err := types.NewPlanSearchRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind plan search request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Plan search validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("plans", len(req.Plans)).Info("Plan search request received")
	results, err := c.matcher.FindAccountsWithPlans(ctx.Request().Context(), req.Plans)
	if err != nil {
		return sourceErrorResponse(ctx, err, "Plan search failed")
	}

	resp := httpdto.PlanSearchResponse{
		Count:   len(results),
		Results: make([]httpdto.MatchResultResponse, 0, len(results)),
	}
	for _, result := range results {
		resp.Results = append(resp.Results, toMatchResultResponse(result))
	}

	logrus.WithField("count", resp.Count).Info("Plan search completed")
	return ctx.JSON(http.StatusOK, resp)
}

func (c *LookupController) SearchUsers(ctx echo.Context) error {
	needle := ctx.QueryParam("q")
	if needle == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "q query parameter is required"})
	}

	logrus.WithField("needle", needle).Info("User search request received")
	records, err := c.userSearchService.SearchByUsername(ctx.Request().Context(), needle)
	if err != nil {
		return sourceErrorResponse(ctx, err, "User search failed")
	}

	resp := httpdto.UserSearchResponse{
		Count: len(records),
		Users: make([]httpdto.UserResponse, 0, len(records)),
	}
	for _, record := range records {
		resp.Users = append(resp.Users, httpdto.UserResponse{
			Username: record.Username,
			Email:    record.Email,
		})
	}

	logrus.WithField("count", resp.Count).Info("User search completed")
	return ctx.JSON(http.StatusOK, resp)
}

func (c *LookupController) Rebuild(ctx echo.Context) error {
	logrus.Info("Rebuild request received")

	index, err := c.indexService.Rebuild(ctx.Request().Context())
	if err != nil {
		return sourceErrorResponse(ctx, err, "Plan index rebuild failed")
	}
	users, err := c.userSearchService.Rebuild(ctx.Request().Context())
	if err != nil {
		return sourceErrorResponse(ctx, err, "User records rebuild failed")
	}

	return ctx.JSON(http.StatusOK, httpdto.RebuildResponse{
		Entries:        len(index.Entries),
		Titles:         len(index.Titles),
		Letters:        len(index.Letters),
		RejectedTitles: index.RejectedTitles,
		RejectedEmails: index.RejectedEmails,
		UserRecords:    users,
	})
}

func toMatchResultResponse(result entity.MatchResult) httpdto.MatchResultResponse {
	return httpdto.MatchResultResponse{
		Email:         result.Email,
		MatchingPlans: result.MatchingPlans,
		AllPlans:      result.AllPlans,
		MatchingCount: result.MatchingCount,
		Completion:    result.Completion,
		HasExtraPlans: result.HasExtraPlans,
	}
}

// sourceErrorResponse maps the data-layer error taxonomy onto HTTP: an
// unbuilt index and an unavailable source are temporary (503), a schema
// mismatch is not (500).
func sourceErrorResponse(ctx echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrIndexNotReady):
		logrus.Warn(msg + ": index not ready")
		return ctx.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: "index not built yet"})
	case errors.Is(err, repository.ErrMissingColumn):
		logrus.WithError(err).Error(msg)
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrSourceUnavailable):
		logrus.WithError(err).Error(msg)
		return ctx.JSON(http.StatusServiceUnavailable, httpdto.ErrorResponse{Error: "data source unavailable"})
	default:
		logrus.WithError(err).Error(msg)
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
}
