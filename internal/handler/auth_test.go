package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/donation-tracker/internal/config"
	"github.com/iliyamo/donation-tracker/internal/repository"
	"github.com/iliyamo/donation-tracker/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "test-secret",
		TokenTTLHours: 1,
		BcryptCost:    bcrypt.MinCost,
		InviteTTLDays: 7,
	}
}

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewInviteRepo(db), nil), mock
}

func postJSON(t *testing.T, h echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func userRow(email string, hash *string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "password_hash", "google_id", "is_active", "created_at", "updated_at",
	}).AddRow(5, email, "Asha", hash, nil, active, time.Now(), time.Now())
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newAuthHandler(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing code", `{"email":"a@example.com","name":"A","password":"pw"}`, "invite_code"},
		{"missing email", `{"invite_code":"ABCD1234","name":"A","password":"pw"}`, "invite_code, email and name are required"},
		{"missing name", `{"invite_code":"ABCD1234","email":"a@example.com","password":"pw"}`, "required"},
		{"missing password", `{"invite_code":"ABCD1234","email":"a@example.com","name":"A"}`, "password is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Register, "/api/v1/auth/register", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestRegisterInviteFailures(t *testing.T) {
	t.Run("unknown code rolls back", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites WHERE invite_code=\\? AND is_used=0").
			WithArgs("NOPE0000").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		rec := postJSON(t, h.Register, "/api/v1/auth/register",
			`{"invite_code":"NOPE0000","email":"a@example.com","name":"A","password":"pw"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matching email redeems the invite", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites WHERE invite_code=\\? AND is_used=0").
			WithArgs("ABCD1234").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "name", "invite_code", "system_password", "assigned_towers",
				"role", "is_used", "expires_at", "created_by", "created_at",
			}).AddRow(7, "a@example.com", "A", "ABCD1234", nil, "[1,2]", "collector", false,
				time.Now().Add(7*24*time.Hour), 1, time.Now()))
		mock.ExpectQuery("SELECT 1 FROM users WHERE email=\\?").
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"1"}))
		mock.ExpectExec("INSERT INTO users").
			WithArgs("a@example.com", "A", sqlmock.AnyArg(), nil).
			WillReturnResult(sqlmock.NewResult(5, 1))
		mock.ExpectExec("INSERT INTO role_assignments").
			WithArgs(uint64(5), "collector", "[1,2]").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE invites SET is_used=1").
			WithArgs(uint64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT .+ FROM users WHERE id=\\?").
			WithArgs(uint64(5)).
			WillReturnRows(userRow("a@example.com", nil, true))

		rec := postJSON(t, h.Register, "/api/v1/auth/register",
			`{"invite_code":"ABCD1234","email":"a@example.com","name":"A","password":"chosen-pw"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())

		var resp struct {
			Token string `json:"token"`
			Roles []struct {
				Role           string `json:"role"`
				AssignedTowers []int  `json:"assigned_towers"`
			} `json:"roles"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := utils.ParseToken("test-secret", resp.Token)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), claims.UserID)
		require.Len(t, resp.Roles, 1)
		assert.Equal(t, "collector", resp.Roles[0].Role)
		assert.Equal(t, []int{1, 2}, resp.Roles[0].AssignedTowers)
	})

	t.Run("expired code", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM invites WHERE invite_code=\\? AND is_used=0").
			WithArgs("ABCD1234").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "name", "invite_code", "system_password", "assigned_towers",
				"role", "is_used", "expires_at", "created_by", "created_at",
			}).AddRow(7, "a@example.com", "A", "ABCD1234", nil, "[1]", "collector", false,
				time.Now().Add(-time.Hour), 1, time.Now().Add(-48*time.Hour)))
		mock.ExpectRollback()

		rec := postJSON(t, h.Register, "/api/v1/auth/register",
			`{"invite_code":"ABCD1234","email":"a@example.com","name":"A","password":"pw"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "expired")
	})
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("right-password", bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("unknown email and wrong password share one message", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
			WithArgs("ghost@example.com").
			WillReturnError(sql.ErrNoRows)
		recUnknown := postJSON(t, h.Login, "/api/v1/auth/login",
			`{"email":"ghost@example.com","password":"whatever"}`)

		mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
			WithArgs("asha@example.com").
			WillReturnRows(userRow("asha@example.com", &hash, true))
		recWrong := postJSON(t, h.Login, "/api/v1/auth/login",
			`{"email":"asha@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
		assert.Equal(t, http.StatusUnauthorized, recWrong.Code)

		var a, b map[string]string
		require.NoError(t, json.Unmarshal(recUnknown.Body.Bytes(), &a))
		require.NoError(t, json.Unmarshal(recWrong.Body.Bytes(), &b))
		assert.Equal(t, a["error"], b["error"])
	})

	t.Run("deactivated account", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
			WithArgs("asha@example.com").
			WillReturnRows(userRow("asha@example.com", &hash, false))

		rec := postJSON(t, h.Login, "/api/v1/auth/login",
			`{"email":"asha@example.com","password":"right-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "deactivated")
	})

	t.Run("success issues token with role snapshot", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
			WithArgs("asha@example.com").
			WillReturnRows(userRow("asha@example.com", &hash, true))
		mock.ExpectQuery("SELECT .+ FROM role_assignments WHERE user_id=\\?").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_towers", "created_at"}).
				AddRow(1, 5, "collector", "[1,2]", time.Now()))

		rec := postJSON(t, h.Login, "/api/v1/auth/login",
			`{"email":"asha@example.com","password":"right-password"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Token)

		claims, err := utils.ParseToken("test-secret", resp.Token)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), claims.UserID)
		require.Len(t, claims.Roles, 1)
		assert.Equal(t, []int{1, 2}, claims.Roles[0].AssignedTowers)
	})

	t.Run("password hash never serialized", func(t *testing.T) {
		h, mock := newAuthHandler(t)
		mock.ExpectQuery("SELECT .+ FROM users WHERE email=\\?").
			WithArgs("asha@example.com").
			WillReturnRows(userRow("asha@example.com", &hash, true))
		mock.ExpectQuery("SELECT .+ FROM role_assignments WHERE user_id=\\?").
			WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_towers", "created_at"}))

		rec := postJSON(t, h.Login, "/api/v1/auth/login",
			`{"email":"asha@example.com","password":"right-password"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), hash)
		assert.NotContains(t, rec.Body.String(), "password_hash")
	})
}
