package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/middleware"
	"github.com/iliyamo/donation-tracker/internal/model"
	"github.com/iliyamo/donation-tracker/internal/queue"
	"github.com/iliyamo/donation-tracker/internal/repository"
	"github.com/iliyamo/donation-tracker/internal/service"
)

// DonationHandler records apartment visits and their outcomes. Recording runs
// in a single transaction so a donation that bumps a campaign total commits
// or rolls back as one unit; a queue event is published best-effort after
// commit.
type DonationHandler struct {
	Donations *repository.DonationRepo
	Campaigns *repository.CampaignRepo
}

func NewDonationHandler(donations *repository.DonationRepo, campaigns *repository.CampaignRepo) *DonationHandler {
	if donations == nil || campaigns == nil {
		panic("nil repository passed to NewDonationHandler")
	}
	return &DonationHandler{Donations: donations, Campaigns: campaigns}
}

type donationReq struct {
	Amount         int64   `json:"amount"`
	Tower          int     `json:"tower"`
	Floor          int     `json:"floor"`
	Unit           int     `json:"unit"`
	DonorName      string  `json:"donor_name"`
	PhoneNumber    *string `json:"phone_number"`
	HeadCount      *int    `json:"head_count"`
	UPIOtherPerson *string `json:"upi_other_person"`
	Sponsorship    *string `json:"sponsorship"`
	Notes          *string `json:"notes"`
	VolunteerName  *string `json:"volunteer_name"`
	Message        *string `json:"message"`
	IsAnonymous    bool    `json:"is_anonymous"`
	PaymentMethod  *string `json:"payment_method"`
	Status         string  `json:"status"`
	DonorID        *uint64 `json:"donor_id"`
	CampaignID     *uint64 `json:"campaign_id"`
}

func (r *donationReq) validate() string {
	r.DonorName = strings.TrimSpace(r.DonorName)
	r.Status = strings.TrimSpace(r.Status)
	if !model.ValidTower(r.Tower) {
		return "tower must be between 1 and 10"
	}
	if !model.ValidFloor(r.Floor) {
		return "floor must be between 1 and 14"
	}
	if !model.ValidUnit(r.Unit) {
		return "unit must be between 1 and 4"
	}
	if r.Status == "" {
		r.Status = model.DonationCompleted
	}
	if !model.ValidDonationStatus(r.Status) {
		return "unknown status"
	}
	if r.Status == model.DonationCompleted {
		if r.Amount < 1 {
			return "amount must be positive for a completed donation"
		}
		if r.DonorName == "" && !r.IsAnonymous {
			return "donor_name is required unless the donation is anonymous"
		}
		if r.PaymentMethod == nil || !model.ValidPaymentMethod(*r.PaymentMethod) {
			return "unknown payment method"
		}
		if *r.PaymentMethod == model.PaymentUPIOther &&
			(r.UPIOtherPerson == nil || strings.TrimSpace(*r.UPIOtherPerson) == "") {
			return "upi_other_person is required for upi-other payments"
		}
	}
	if r.Amount < 0 {
		return "amount cannot be negative"
	}
	return ""
}

func (r *donationReq) toModel() model.Donation {
	return model.Donation{
		Amount:         r.Amount,
		Tower:          r.Tower,
		Floor:          r.Floor,
		Unit:           r.Unit,
		DonorName:      r.DonorName,
		PhoneNumber:    r.PhoneNumber,
		HeadCount:      r.HeadCount,
		UPIOtherPerson: r.UPIOtherPerson,
		Sponsorship:    r.Sponsorship,
		Notes:          r.Notes,
		VolunteerName:  r.VolunteerName,
		Message:        r.Message,
		IsAnonymous:    r.IsAnonymous,
		PaymentMethod:  r.PaymentMethod,
		Status:         r.Status,
		DonorID:        r.DonorID,
		CampaignID:     r.CampaignID,
	}
}

// List handles GET /donations with optional ?tower= and ?status= filters.
func (h *DonationHandler) List(c echo.Context) error {
	var f repository.ListFilter
	if raw := c.QueryParam("tower"); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || !model.ValidTower(t) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tower"})
		}
		f.Tower = t
	}
	if raw := c.QueryParam("status"); raw != "" {
		if !model.ValidDonationStatus(raw) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		f.Status = raw
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	donations, err := h.Donations.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	return c.JSON(http.StatusOK, donations)
}

// Get handles GET /donations/:id.
func (h *DonationHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donation id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	donation, err := h.Donations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, donation)
}

// ByApartment handles GET /donations/apartment/:tower/:floor/:unit.
func (h *DonationHandler) ByApartment(c echo.Context) error {
	tower, err1 := strconv.Atoi(c.Param("tower"))
	floor, err2 := strconv.Atoi(c.Param("floor"))
	unit, err3 := strconv.Atoi(c.Param("unit"))
	if err1 != nil || err2 != nil || err3 != nil ||
		!model.ValidTower(tower) || !model.ValidFloor(floor) || !model.ValidUnit(unit) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid apartment"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	donations, err := h.Donations.ByApartment(ctx, tower, floor, unit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"apartment": model.ApartmentLabel(tower, floor, unit),
		"donations": donations,
	})
}

// Create handles POST /donations. The donation insert and the optional
// campaign total bump share one transaction.
func (h *DonationHandler) Create(c echo.Context) error {
	var req donationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	donation := req.toModel()
	if id, ok := middleware.UserID(c); ok {
		vid := strconv.FormatUint(id, 10)
		donation.VolunteerID = &vid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Donations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record donation failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Donations.CreateTx(ctx, tx, &donation); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record donation failed"})
	}
	if donation.CampaignID != nil && donation.Status == model.DonationCompleted {
		if err := h.Campaigns.AddAmountTx(ctx, tx, *donation.CampaignID, donation.Amount); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "campaign not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record donation failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record donation failed"})
	}
	committed = true

	created, err := h.Donations.GetByID(ctx, donation.ID)
	if err != nil {
		created = donation
	}

	// Best effort: a broker outage must not fail a committed donation.
	go func(d model.Donation) {
		pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pcancel()
		_ = service.PublishDonationRecorded(pctx, queue.NewDonationRecordedEvent(d))
	}(created)

	return c.JSON(http.StatusCreated, created)
}

// campaignCredit returns the campaign a donation credits and the credited
// amount. Only completed donations count towards a campaign total.
func campaignCredit(d model.Donation) (uint64, int64, bool) {
	if d.CampaignID == nil || d.Status != model.DonationCompleted {
		return 0, 0, false
	}
	return *d.CampaignID, d.Amount, true
}

// moveCampaignCredit rebalances campaign running totals when an edit changes
// a donation's amount, status or campaign link: the old credit is withdrawn
// and the new one applied inside the caller's transaction. A withdrawal from
// a campaign that no longer exists is skipped rather than failing the edit.
func (h *DonationHandler) moveCampaignCredit(ctx context.Context, tx *sql.Tx, before, after model.Donation) error {
	oldID, oldAmount, hadCredit := campaignCredit(before)
	newID, newAmount, hasCredit := campaignCredit(after)

	if hadCredit && hasCredit && oldID == newID {
		if delta := newAmount - oldAmount; delta != 0 {
			return h.Campaigns.AddAmountTx(ctx, tx, oldID, delta)
		}
		return nil
	}
	if hadCredit {
		if err := h.Campaigns.AddAmountTx(ctx, tx, oldID, -oldAmount); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	if hasCredit {
		return h.Campaigns.AddAmountTx(ctx, tx, newID, newAmount)
	}
	return nil
}

// Update handles PUT /donations/:id. The row is locked, the linked campaign
// total rebalanced and the donation rewritten in one transaction.
func (h *DonationHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donation id"})
	}
	var req donationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Donations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	existing, err := h.Donations.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	updated := req.toModel()
	updated.ID = existing.ID
	updated.VolunteerID = existing.VolunteerID
	if updated.VolunteerName == nil {
		updated.VolunteerName = existing.VolunteerName
	}

	if err := h.moveCampaignCredit(ctx, tx, existing, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "campaign not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.Donations.UpdateTx(ctx, tx, &updated); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	committed = true

	updated, _ = h.Donations.GetByID(ctx, id)
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /donations/:id. A completed donation's credit is
// withdrawn from its campaign in the same transaction that removes the row.
func (h *DonationHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid donation id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Donations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	existing, err := h.Donations.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "donation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if cid, amount, ok := campaignCredit(existing); ok {
		if err := h.Campaigns.AddAmountTx(ctx, tx, cid, -amount); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	if err := h.Donations.DeleteTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	committed = true
	return c.NoContent(http.StatusNoContent)
}

// towerProgress is one row of the stats endpoint's per-tower table.
type towerProgress struct {
	Tower         string  `json:"tower"`
	TotalAmount   int64   `json:"total_amount"`
	Completed     int     `json:"completed"`
	FollowUps     int     `json:"follow_ups"`
	Skipped       int     `json:"skipped"`
	Visited       int     `json:"visited"`
	TotalUnits    int     `json:"total_units"`
	CompletionPct float64 `json:"completion_pct"`
}

// Stats handles GET /stats: overall collection numbers plus per-tower
// coverage.
func (h *DonationHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	overall, err := h.Donations.GetStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
	}

	const unitsPerTower = model.FloorsPerTower * model.UnitsPerFloor
	towers := make([]towerProgress, 0, model.TowerCount)
	for t := 1; t <= model.TowerCount; t++ {
		ts, err := h.Donations.GetTowerStats(ctx, t)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stats failed"})
		}
		towers = append(towers, towerProgress{
			Tower:         model.TowerLabel(t),
			TotalAmount:   ts.TotalAmount,
			Completed:     ts.Completed,
			FollowUps:     ts.FollowUps,
			Skipped:       ts.Skipped,
			Visited:       ts.Visited(),
			TotalUnits:    unitsPerTower,
			CompletionPct: float64(ts.Visited()) * 100 / unitsPerTower,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"overall": overall,
		"towers":  towers,
	})
}
