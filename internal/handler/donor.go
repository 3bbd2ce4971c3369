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

// DonorHandler implements CRUD for registered donors.
type DonorHandler struct {
	Donors *repository.DonorRepo
}

func NewDonorHandler(donors *repository.DonorRepo) *DonorHandler {
	if donors == nil {
		panic("nil repository passed to NewDonorHandler")
	}
	return &DonorHandler{Donors: donors}
}

type donorReq struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (r *donorReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = repository.NormalizeEmail(r.Email)
	if r.Name == "" {
		return "name is required"
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return "a valid email is required"
	}
	return ""
}

// List handles GET /donors.
func (h *DonorHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	donors, err := h.Donors.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if donors == nil {
		donors = []model.Donor{}
	}
	return c.JSON(http.StatusOK, donors)
}

// Get handles GET /donors/:id.
func (h *DonorHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donor id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	donor, err := h.Donors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, donor)
}

// Create handles POST /donors.
func (h *DonorHandler) Create(c echo.Context) error {
	var req donorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	donor := model.Donor{Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
	if err := h.Donors.Create(ctx, &donor); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "donor with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create donor failed"})
	}
	donor, _ = h.Donors.GetByID(ctx, donor.ID)
	return c.JSON(http.StatusCreated, donor)
}

// Update handles PUT /donors/:id.
func (h *DonorHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donor id"})
	}
	var req donorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	donor := model.Donor{ID: id, Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
	if err := h.Donors.Update(ctx, &donor); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donor not found"})
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "donor with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	donor, _ = h.Donors.GetByID(ctx, id)
	return c.JSON(http.StatusOK, donor)
}

// Delete handles DELETE /donors/:id.
func (h *DonorHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donor id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Donors.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
