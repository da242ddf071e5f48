package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ReorderHandler struct {
	service *service.ReorderService
}

func NewReorderHandler(service *service.ReorderService) *ReorderHandler {
	return &ReorderHandler{service: service}
}

type draftRequestBody struct {
	OrganizationID      *int64   `json:"organization_id"`
	LocationID          *int64   `json:"location_id"`
	ProductIDs          []int64  `json:"product_ids"`
	Strategy            string   `json:"strategy"`
	HorizonDaysOverride *int     `json:"horizon_days_override"`
	IncludeZeroVelocity *bool    `json:"include_zero_velocity"`
	IncludeNoSupplier   *bool    `json:"include_no_supplier"`
	MinDaysCover        *float64 `json:"min_days_cover"`
	MaxDaysCover        *float64 `json:"max_days_cover"`
	AutoNumber          bool     `json:"auto_number"`
	Persist             bool     `json:"persist"`
	Export              bool     `json:"export"`
}

// GetSuggestions returns the ranked suggestions for the requested scope.
func (h *ReorderHandler) GetSuggestions(c *gin.Context) {
	scope, err := parseScope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	params, err := h.parseParams(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.service.Suggest(c.Request.Context(), service.SuggestRequest{Scope: scope, Params: params})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":    h.service.ProviderName(),
		"suggestions": result.Suggestions,
		"summary":     result.Summary,
		"skipped":     result.Skipped,
		"diagnostics": result.Diagnostics,
	})
}

// ExplainSuggestion re-runs the computation for one product with its trace.
func (h *ReorderHandler) ExplainSuggestion(c *gin.Context) {
	productID, err := strconv.ParseInt(strings.TrimSpace(c.Param("product_id")), 10, 64)
	if err != nil || productID <= 0 {
		h.respondError(c, &reorder.ValidationError{Field: "product_id", Message: "must be a positive integer"})
		return
	}
	scope, err := parseScope(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	params, err := h.parseParams(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	explanation, err := h.service.Explain(c.Request.Context(), service.ExplainRequest{
		Scope:     scope,
		ProductID: productID,
		Params:    params,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, explanation)
}

// CreateDrafts groups the selected products into draft purchase orders.
func (h *ReorderHandler) CreateDrafts(c *gin.Context) {
	var body draftRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params := h.service.DefaultParams()
	if body.Strategy != "" {
		params.Strategy = reorder.Strategy(body.Strategy)
	}
	params.HorizonDaysOverride = body.HorizonDaysOverride
	if body.IncludeZeroVelocity != nil {
		params.IncludeZeroVelocity = *body.IncludeZeroVelocity
	}
	if body.IncludeNoSupplier != nil {
		params.ExcludeNoSupplier = !*body.IncludeNoSupplier
	}
	params.MinDaysCover = body.MinDaysCover
	params.MaxDaysCover = body.MaxDaysCover

	resp, err := h.service.CreateDrafts(c.Request.Context(), service.DraftRequest{
		Scope:      provider.Scope{OrganizationID: body.OrganizationID, LocationID: body.LocationID},
		ProductIDs: body.ProductIDs,
		Params:     params,
		AutoNumber: body.AutoNumber,
		Persist:    body.Persist,
		Export:     body.Export,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusOK
	if len(resp.Saved) > 0 {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *ReorderHandler) respondError(c *gin.Context, err error) {
	var verr *reorder.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, reorder.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.Is(err, service.ErrPersistenceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("reorder request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute reorder suggestions"})
	}
}

func (h *ReorderHandler) parseParams(c *gin.Context) (reorder.Params, error) {
	params := h.service.DefaultParams()

	if raw := strings.TrimSpace(c.Query("strategy")); raw != "" {
		params.Strategy = reorder.Strategy(raw)
	}

	if raw := strings.TrimSpace(c.Query("horizon_days_override")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return params, &reorder.ValidationError{Field: "horizon_days_override", Message: "must be a positive integer"}
		}
		params.HorizonDaysOverride = &v
	}

	var err error
	if params.IncludeZeroVelocity, err = parseBool(c, "include_zero_velocity", params.IncludeZeroVelocity); err != nil {
		return params, err
	}

	// include_no_supplier is the public name; exclude_no_supplier is accepted too.
	include, err := parseBool(c, "include_no_supplier", !params.ExcludeNoSupplier)
	if err != nil {
		return params, err
	}
	params.ExcludeNoSupplier = !include
	if params.ExcludeNoSupplier, err = parseBool(c, "exclude_no_supplier", params.ExcludeNoSupplier); err != nil {
		return params, err
	}

	if params.MinDaysCover, err = parseOptionalFloat(c, "min_days_cover"); err != nil {
		return params, err
	}
	if params.MaxDaysCover, err = parseOptionalFloat(c, "max_days_cover"); err != nil {
		return params, err
	}

	return params, nil
}

func parseScope(c *gin.Context) (provider.Scope, error) {
	var (
		scope provider.Scope
		err   error
	)
	if scope.OrganizationID, err = parseOptionalID(c, "organization_id"); err != nil {
		return scope, err
	}
	if scope.LocationID, err = parseOptionalID(c, "location_id"); err != nil {
		return scope, err
	}
	scope.ProductIDs, err = parseIDList(c, "product_ids")
	return scope, err
}

func parseBool(c *gin.Context, name string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, &reorder.ValidationError{Field: name, Message: "must be true or false"}
	}
	return v, nil
}

func parseOptionalFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &reorder.ValidationError{Field: name, Message: "must be a number"}
	}
	return &v, nil
}

func parseOptionalID(c *gin.Context, name string) (*int64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return nil, &reorder.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return &v, nil
}

// parseIDList accepts repeated params and comma-separated values:
//
//	?product_ids=1&product_ids=2
//	?product_ids=1,2
func parseIDList(c *gin.Context, name string) ([]int64, error) {
	var ids []int64
	for _, v := range c.QueryArray(name) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, &reorder.ValidationError{Field: name, Message: "must be a list of positive integers"}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
