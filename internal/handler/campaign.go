package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/model"
	"github.com/iliyamo/donation-tracker/internal/repository"
)

// CampaignHandler implements CRUD for fundraising campaigns.
type CampaignHandler struct {
	Campaigns *repository.CampaignRepo
}

func NewCampaignHandler(campaigns *repository.CampaignRepo) *CampaignHandler {
	if campaigns == nil {
		panic("nil repository passed to NewCampaignHandler")
	}
	return &CampaignHandler{Campaigns: campaigns}
}

type campaignReq struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	GoalAmount  int64      `json:"goal_amount"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

func (r *campaignReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.GoalAmount < 1 {
		return "goal_amount must be positive"
	}
	if r.StartDate == nil || r.EndDate == nil {
		return "start_date and end_date are required"
	}
	if !r.EndDate.After(*r.StartDate) {
		return "end_date must be after start_date"
	}
	return ""
}

// List handles GET /campaigns.
func (h *CampaignHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	campaigns, err := h.Campaigns.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	return c.JSON(http.StatusOK, campaigns)
}

// Get handles GET /campaigns/:id.
func (h *CampaignHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	campaign, err := h.Campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "campaign not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, campaign)
}

// Create handles POST /campaigns.
func (h *CampaignHandler) Create(c echo.Context) error {
	var req campaignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	campaign := model.Campaign{
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		IsActive:    active,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Campaigns.Create(ctx, &campaign); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create campaign failed"})
	}
	campaign, _ = h.Campaigns.GetByID(ctx, campaign.ID)
	return c.JSON(http.StatusCreated, campaign)
}

// Update handles PUT /campaigns/:id.
func (h *CampaignHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign id"})
	}
	var req campaignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "campaign not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	existing.Title = req.Title
	existing.Description = req.Description
	existing.GoalAmount = req.GoalAmount
	existing.StartDate = req.StartDate.UTC()
	existing.EndDate = req.EndDate.UTC()
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if err := h.Campaigns.Update(ctx, &existing); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	existing, _ = h.Campaigns.GetByID(ctx, id)
	return c.JSON(http.StatusOK, existing)
}

// Delete handles DELETE /campaigns/:id.
func (h *CampaignHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid campaign id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Campaigns.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "campaign not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
