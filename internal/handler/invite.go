package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/config"
	"github.com/iliyamo/donation-tracker/internal/middleware"
	"github.com/iliyamo/donation-tracker/internal/model"
	"github.com/iliyamo/donation-tracker/internal/repository"
	"github.com/iliyamo/donation-tracker/internal/utils"
)

// InviteHandler implements invite issuance and lookup. Creating and listing
// invites is admin-only; the single-code lookup is public so the
// registration page can show who an invite is for before the code is
// redeemed.
type InviteHandler struct {
	Cfg     config.Config
	Invites *repository.InviteRepo
}

func NewInviteHandler(cfg config.Config, invites *repository.InviteRepo) *InviteHandler {
	if invites == nil {
		panic("nil repository passed to NewInviteHandler")
	}
	return &InviteHandler{Cfg: cfg, Invites: invites}
}

type createInviteReq struct {
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	Role                   string     `json:"role"`
	AssignedTowers         []int      `json:"assigned_towers"`
	ExpiresAt              *time.Time `json:"expires_at"`
	GenerateSystemPassword bool       `json:"generate_system_password"`
}

// Create handles POST /auth/invites (admin only). The invite code and the
// optional system password are generated server side; the expiry defaults to
// the configured invite TTL.
func (h *InviteHandler) Create(c echo.Context) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req createInviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and name are required"})
	}
	role := req.Role
	if role == "" {
		role = model.RoleCollector
	}
	if role != model.RoleCollector && role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}
	for _, t := range req.AssignedTowers {
		if !model.ValidTower(t) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tower in assignment"})
		}
	}

	code, err := utils.NewInviteCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite creation failed"})
	}
	var systemPassword *string
	if req.GenerateSystemPassword {
		pw, err := utils.NewSystemPassword()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite creation failed"})
		}
		systemPassword = &pw
	}
	expiresAt := time.Now().UTC().Add(time.Duration(h.Cfg.InviteTTLDays) * 24 * time.Hour)
	if req.ExpiresAt != nil {
		expiresAt = req.ExpiresAt.UTC()
	}

	inv := model.Invite{
		Email:          req.Email,
		Name:           req.Name,
		Code:           code,
		SystemPassword: systemPassword,
		AssignedTowers: req.AssignedTowers,
		Role:           role,
		ExpiresAt:      expiresAt,
		CreatedBy:      adminID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Invites.Create(ctx, &inv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite creation failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "invite created successfully",
		"invite":  inv,
		// Convenience link for the admin to share with the invitee.
		"invite_url": "/register?code=" + inv.Code,
	})
}

// List handles GET /auth/invites (admin only), newest first.
func (h *InviteHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	invites, err := h.Invites.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if invites == nil {
		invites = []model.Invite{}
	}
	return c.JSON(http.StatusOK, invites)
}

// GetByCode handles GET /auth/invites/:code. It is public but only reveals
// invite metadata while the invite is still unredeemed and unexpired; a used
// invite answers 400 and an unknown code 404. The system password itself is
// never exposed here, only whether one exists.
func (h *InviteHandler) GetByCode(c echo.Context) error {
	code := c.Param("code")
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	inv, err := h.Invites.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invite not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if inv.IsUsed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite has already been used"})
	}
	if !time.Now().UTC().Before(inv.ExpiresAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite has expired"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email":               inv.Email,
		"name":                inv.Name,
		"role":                inv.Role,
		"assigned_towers":     inv.AssignedTowers,
		"has_system_password": inv.SystemPassword != nil,
		"expires_at":          inv.ExpiresAt,
	})
}
