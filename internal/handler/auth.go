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
	"github.com/iliyamo/donation-tracker/internal/service"
	"github.com/iliyamo/donation-tracker/internal/utils"
)

// AuthHandler bundles dependencies for the authentication endpoints:
// registration by invite, password and Google login, profile and password
// change. It is constructed once at startup with its configuration injected;
// nothing here reads ambient globals.
type AuthHandler struct {
	Cfg     config.Config
	Users   *repository.UserRepo
	Invites *repository.InviteRepo
	Google  service.GoogleVerifier
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, invites *repository.InviteRepo, google service.GoogleVerifier) *AuthHandler {
	if users == nil || invites == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: users, Invites: invites, Google: google}
}

// ----- DTOs -----

type registerReq struct {
	InviteCode        string `json:"invite_code"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Password          string `json:"password"`
	UseSystemPassword bool   `json:"use_system_password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleAuthReq struct {
	GoogleToken string `json:"google_token"`
	InviteCode  string `json:"invite_code"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type authResp struct {
	Token string                 `json:"token"`
	User  model.User             `json:"user"`
	Roles []model.RoleAssignment `json:"roles"`
}

// loginFailedMsg is shared by unknown-email and wrong-password responses so
// the login endpoint cannot be used to enumerate accounts.
const loginFailedMsg = "invalid email or password"

// Register handles POST /auth/register: redeem an invite code into a new
// user account. The invariants run in order with the first failure winning:
// unknown or used code, expired code, email mismatch, existing user. The
// user insert, role insert and invite consumption commit in one transaction
// so a crash can never leave a consumed invite without its user or vice
// versa.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.InviteCode == "" || req.Email == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite_code, email and name are required"})
	}
	if !req.UseSystemPassword && req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, roles, err := h.redeemInvite(ctx, redemption{
		code:              req.InviteCode,
		email:             req.Email,
		name:              req.Name,
		password:          req.Password,
		useSystemPassword: req.UseSystemPassword,
	})
	if err != nil {
		return redemptionError(c, err)
	}

	token, _, err := utils.NewToken(h.Cfg.JWTSecret, user.ID, user.Email, utils.RoleClaims(roles), h.Cfg.TokenTTLHours)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusCreated, authResp{Token: token, User: user, Roles: roles})
}

// redemption carries the inputs of one invite redemption. Exactly one of
// password/useSystemPassword or googleID is set depending on the path.
type redemption struct {
	code              string
	email             string
	name              string
	password          string
	useSystemPassword bool
	googleID          *string
}

// redeemInvite runs the invite state transition ISSUED -> REDEEMED. All
// writes happen in a single transaction; any failure rolls the whole thing
// back and the invite stays redeemable.
func (h *AuthHandler) redeemInvite(ctx context.Context, r redemption) (model.User, []model.RoleAssignment, error) {
	tx, err := h.Users.DB().BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	invite, err := h.Invites.FindRedeemableTx(ctx, tx, r.code, r.email, time.Now().UTC())
	if err != nil {
		return model.User{}, nil, err
	}
	if exists, err := h.Users.ExistsByEmail(ctx, r.email); err != nil {
		return model.User{}, nil, err
	} else if exists {
		return model.User{}, nil, repository.ErrUserExists
	}

	var passwordHash *string
	if r.googleID == nil {
		plain := r.password
		if r.useSystemPassword && invite.SystemPassword != nil {
			plain = *invite.SystemPassword
		}
		hash, err := utils.HashPassword(plain, h.Cfg.BcryptCost)
		if err != nil {
			return model.User{}, nil, err
		}
		passwordHash = &hash
	}

	uid, err := h.Users.CreateTx(ctx, tx, r.email, r.name, passwordHash, r.googleID)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, nil, repository.ErrUserExists
		}
		return model.User{}, nil, err
	}
	if err := h.Users.CreateRoleTx(ctx, tx, uid, invite.Role, invite.AssignedTowers); err != nil {
		return model.User{}, nil, err
	}
	if err := h.Invites.MarkUsedTx(ctx, tx, invite.ID); err != nil {
		return model.User{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, nil, err
	}
	committed = true

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, nil, err
	}
	roles := []model.RoleAssignment{{UserID: uid, Role: invite.Role, AssignedTowers: invite.AssignedTowers}}
	return user, roles, nil
}

// redemptionError maps the redemption error taxonomy onto HTTP responses.
// All invariant violations are 400s with distinct messages; anything else is
// an opaque 500.
func redemptionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrInviteInvalid),
		errors.Is(err, repository.ErrInviteExpired),
		errors.Is(err, repository.ErrEmailMismatch),
		errors.Is(err, repository.ErrUserExists):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
}

// Login handles POST /auth/login. Unknown email, deactivated account and
// wrong password are all rejected with 401; unknown email and wrong password
// share one message.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = repository.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": loginFailedMsg})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if !user.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
	}
	if user.PasswordHash == nil || !utils.VerifyPassword(*user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": loginFailedMsg})
	}

	return h.issueFor(c, ctx, user, http.StatusOK)
}

// GoogleAuth handles POST /auth/google-auth. The Google token is verified
// with Google and the verified email drives the flow: an existing user is
// simply logged in; a new user must present a valid invite for that email,
// which is redeemed exactly like password registration but with the Google
// identity in place of a password hash.
func (h *AuthHandler) GoogleAuth(c echo.Context) error {
	var req googleAuthReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.GoogleToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "google_token is required"})
	}
	if h.Google == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "google sign-in is not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	info, err := h.Google.Verify(ctx, req.GoogleToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid google token"})
	}
	email := repository.NormalizeEmail(info.Email)

	user, err := h.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsActive {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account is deactivated"})
		}
		return h.issueFor(c, ctx, user, http.StatusOK)
	case errors.Is(err, repository.ErrNotFound):
		// fall through to invite redemption
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	if req.InviteCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invite_code is required for new accounts"})
	}
	name := info.Name
	user, roles, err := func() (model.User, []model.RoleAssignment, error) {
		return h.redeemInvite(ctx, redemption{
			code:     req.InviteCode,
			email:    email,
			name:     name,
			googleID: &info.ID,
		})
	}()
	if err != nil {
		return redemptionError(c, err)
	}
	token, _, err := utils.NewToken(h.Cfg.JWTSecret, user.ID, user.Email, utils.RoleClaims(roles), h.Cfg.TokenTTLHours)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusCreated, authResp{Token: token, User: user, Roles: roles})
}

// issueFor resolves the user's current role assignments, snapshots them into
// a fresh token and writes the auth response.
func (h *AuthHandler) issueFor(c echo.Context, ctx context.Context, user model.User, status int) error {
	roles, err := h.Users.RolesForUser(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	token, _, err := utils.NewToken(h.Cfg.JWTSecret, user.ID, user.Email, utils.RoleClaims(roles), h.Cfg.TokenTTLHours)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(status, authResp{Token: token, User: user, Roles: roles})
}

// Profile handles GET /auth/profile for the authenticated user.
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	roles, err := h.Users.RolesForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user, "roles": roles})
}

// ChangePassword handles POST /auth/change-password. The current password
// must verify before the new one is stored.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "current_password and new_password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if user.PasswordHash == nil || !utils.VerifyPassword(*user.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}
	if err := h.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed successfully"})
}
