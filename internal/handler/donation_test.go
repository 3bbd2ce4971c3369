package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/donation-tracker/internal/repository"
)

func newDonationHandler(t *testing.T) (*DonationHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDonationHandler(repository.NewDonationRepo(db), repository.NewCampaignRepo(db)), mock
}

func donationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "amount", "tower", "floor", "unit", "donor_name", "phone_number", "head_count",
		"upi_other_person", "sponsorship", "notes", "volunteer_id", "volunteer_name", "message",
		"is_anonymous", "payment_method", "status", "donor_id", "campaign_id", "created_at", "updated_at",
	}).AddRow(11, 500, 1, 7, 2, "Asha", nil, nil, nil, nil, nil, nil, nil, nil,
		false, "cash", "completed", nil, nil, time.Now(), time.Now())
}

func TestDonationCreateValidation(t *testing.T) {
	h, _ := newDonationHandler(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"tower out of range", `{"tower":11,"floor":1,"unit":1,"amount":100,"donor_name":"A","payment_method":"cash"}`, "tower"},
		{"floor out of range", `{"tower":1,"floor":15,"unit":1,"amount":100,"donor_name":"A","payment_method":"cash"}`, "floor"},
		{"unit out of range", `{"tower":1,"floor":1,"unit":5,"amount":100,"donor_name":"A","payment_method":"cash"}`, "unit"},
		{"zero amount completed", `{"tower":1,"floor":1,"unit":1,"amount":0,"donor_name":"A","payment_method":"cash"}`, "amount"},
		{"unknown status", `{"tower":1,"floor":1,"unit":1,"amount":100,"donor_name":"A","payment_method":"cash","status":"done"}`, "status"},
		{"unknown payment method", `{"tower":1,"floor":1,"unit":1,"amount":100,"donor_name":"A","payment_method":"cheque"}`, "payment"},
		{"anonymous needs no name", `{"tower":1,"floor":1,"unit":1,"amount":100,"payment_method":"cash"}`, "donor_name"},
		{"upi-other needs payer", `{"tower":1,"floor":1,"unit":1,"amount":100,"donor_name":"A","payment_method":"upi-other"}`, "upi_other_person"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h.Create, "/api/v1/donations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestDonationCreate(t *testing.T) {
	t.Run("commits insert", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO donations").
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\?").
			WithArgs(uint64(11)).
			WillReturnRows(donationRows())

		rec := postJSON(t, h.Create, "/api/v1/donations",
			`{"tower":1,"floor":7,"unit":2,"amount":500,"donor_name":"Asha","payment_method":"cash"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("campaign bump in same transaction", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO donations").
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec("UPDATE campaigns SET current_amount = current_amount \\+ \\?").
			WithArgs(int64(500), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\?").
			WillReturnRows(donationRows())

		rec := postJSON(t, h.Create, "/api/v1/donations",
			`{"tower":1,"floor":7,"unit":2,"amount":500,"donor_name":"Asha","payment_method":"cash","campaign_id":2}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown campaign rolls everything back", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO donations").
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectExec("UPDATE campaigns SET current_amount").
			WithArgs(int64(500), uint64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		rec := postJSON(t, h.Create, "/api/v1/donations",
			`{"tower":1,"floor":7,"unit":2,"amount":500,"donor_name":"Asha","payment_method":"cash","campaign_id":99}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func campaignDonationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "amount", "tower", "floor", "unit", "donor_name", "phone_number", "head_count",
		"upi_other_person", "sponsorship", "notes", "volunteer_id", "volunteer_name", "message",
		"is_anonymous", "payment_method", "status", "donor_id", "campaign_id", "created_at", "updated_at",
	}).AddRow(11, 500, 1, 7, 2, "Asha", nil, nil, nil, nil, nil, nil, nil, nil,
		false, "cash", "completed", nil, 2, time.Now(), time.Now())
}

func donationRequest(t *testing.T, h echo.HandlerFunc, method, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h(c))
	return rec
}

func TestDonationUpdate(t *testing.T) {
	t.Run("amount change moves the campaign total by the delta", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(11)).
			WillReturnRows(campaignDonationRows())
		mock.ExpectExec("UPDATE campaigns SET current_amount = current_amount \\+ \\?").
			WithArgs(int64(300), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("donor_id=\\?, campaign_id=\\? WHERE id=\\?").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\?").
			WillReturnRows(campaignDonationRows())

		rec := donationRequest(t, h.Update, http.MethodPut, "11",
			`{"tower":1,"floor":7,"unit":2,"amount":800,"donor_name":"Asha","payment_method":"cash","campaign_id":2}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("flipping completed away withdraws the credit", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(11)).
			WillReturnRows(campaignDonationRows())
		mock.ExpectExec("UPDATE campaigns SET current_amount = current_amount \\+ \\?").
			WithArgs(int64(-500), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE donations SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\?").
			WillReturnRows(campaignDonationRows())

		rec := donationRequest(t, h.Update, http.MethodPut, "11",
			`{"tower":1,"floor":7,"unit":2,"amount":0,"status":"skipped","campaign_id":2}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown campaign rolls the edit back", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(11)).
			WillReturnRows(donationRows())
		mock.ExpectExec("UPDATE campaigns SET current_amount = current_amount \\+ \\?").
			WithArgs(int64(800), uint64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		rec := donationRequest(t, h.Update, http.MethodPut, "11",
			`{"tower":1,"floor":7,"unit":2,"amount":800,"donor_name":"Asha","payment_method":"cash","campaign_id":99}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing donation returns 404", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		rec := donationRequest(t, h.Update, http.MethodPut, "42",
			`{"tower":1,"floor":7,"unit":2,"amount":800,"donor_name":"Asha","payment_method":"cash"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDonationDelete(t *testing.T) {
	t.Run("withdraws the campaign credit with the row", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(11)).
			WillReturnRows(campaignDonationRows())
		mock.ExpectExec("UPDATE campaigns SET current_amount = current_amount \\+ \\?").
			WithArgs(int64(-500), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM donations WHERE id=\\?").
			WithArgs(uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := donationRequest(t, h.Delete, http.MethodDelete, "11", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unlinked donation just deletes", func(t *testing.T) {
		h, mock := newDonationHandler(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT .+ FROM donations WHERE id=\\? LIMIT 1 FOR UPDATE").
			WithArgs(uint64(11)).
			WillReturnRows(donationRows())
		mock.ExpectExec("DELETE FROM donations WHERE id=\\?").
			WithArgs(uint64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := donationRequest(t, h.Delete, http.MethodDelete, "11", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDonationByApartment(t *testing.T) {
	h, mock := newDonationHandler(t)

	t.Run("invalid coordinates", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("tower", "floor", "unit")
		c.SetParamValues("1", "15", "1")
		require.NoError(t, h.ByApartment(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("labels the apartment", func(t *testing.T) {
		mock.ExpectQuery("SELECT .+ FROM donations WHERE tower=\\? AND floor=\\? AND unit=\\?").
			WithArgs(3, 7, 4).
			WillReturnRows(donationRows())

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("tower", "floor", "unit")
		c.SetParamValues("3", "7", "4")
		require.NoError(t, h.ByApartment(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"apartment":"C704"`)
	})
}

func TestDonationListFilterValidation(t *testing.T) {
	h, _ := newDonationHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?tower=99", strings.NewReader(""))
	rec := httptest.NewRecorder()
	require.NoError(t, h.List(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
