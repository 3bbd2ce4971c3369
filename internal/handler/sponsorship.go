package handler

import (
	"context"
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

// SponsorshipHandler serves the sponsorship catalogue and the booking flow.
// A booking takes one slot and records the backing donation in the same
// transaction, so the counter can never disagree with the donations that
// consumed it.
type SponsorshipHandler struct {
	Sponsorships *repository.SponsorshipRepo
	Donations    *repository.DonationRepo
	Campaigns    *repository.CampaignRepo
}

func NewSponsorshipHandler(sponsorships *repository.SponsorshipRepo, donations *repository.DonationRepo, campaigns *repository.CampaignRepo) *SponsorshipHandler {
	if sponsorships == nil || donations == nil || campaigns == nil {
		panic("nil repository passed to NewSponsorshipHandler")
	}
	return &SponsorshipHandler{Sponsorships: sponsorships, Donations: donations, Campaigns: campaigns}
}

// List handles GET /sponsorships.
func (h *SponsorshipHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	sponsorships, err := h.Sponsorships.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	if sponsorships == nil {
		sponsorships = []model.Sponsorship{}
	}
	return c.JSON(http.StatusOK, sponsorships)
}

type sponsorshipReq struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	MaxCount int    `json:"max_count"`
}

// Create handles POST /sponsorships (admin only).
func (h *SponsorshipHandler) Create(c echo.Context) error {
	var req sponsorshipReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Amount < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	if req.MaxCount < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_count must be positive"})
	}

	s := model.Sponsorship{Name: req.Name, Amount: req.Amount, MaxCount: req.MaxCount}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Sponsorships.Create(ctx, &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create sponsorship failed"})
	}
	s, _ = h.Sponsorships.GetByID(ctx, s.ID)
	return c.JSON(http.StatusCreated, s)
}

type bookSponsorshipReq struct {
	Tower          int     `json:"tower"`
	Floor          int     `json:"floor"`
	Unit           int     `json:"unit"`
	DonorName      string  `json:"donor_name"`
	PhoneNumber    *string `json:"phone_number"`
	UPIOtherPerson *string `json:"upi_other_person"`
	Notes          *string `json:"notes"`
	VolunteerName  *string `json:"volunteer_name"`
	Message        *string `json:"message"`
	IsAnonymous    bool    `json:"is_anonymous"`
	PaymentMethod  *string `json:"payment_method"`
	CampaignID     *uint64 `json:"campaign_id"`
}

func (r *bookSponsorshipReq) validate() string {
	r.DonorName = strings.TrimSpace(r.DonorName)
	if !model.ValidTower(r.Tower) {
		return "tower must be between 1 and 10"
	}
	if !model.ValidFloor(r.Floor) {
		return "floor must be between 1 and 14"
	}
	if !model.ValidUnit(r.Unit) {
		return "unit must be between 1 and 4"
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
	return ""
}

// Book handles POST /sponsorships/:id/book. The slot increment and the
// donation insert commit together; a closed or full slot yields 409 and
// nothing is written.
func (h *SponsorshipHandler) Book(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid sponsorship id"})
	}
	var req bookSponsorshipReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Sponsorships.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	slot, err := h.Sponsorships.BookTx(ctx, tx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "sponsorship not found"})
		case errors.Is(err, repository.ErrSponsorshipClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "sponsorship is closed or fully booked"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	donation := model.Donation{
		Amount:         slot.Amount,
		Tower:          req.Tower,
		Floor:          req.Floor,
		Unit:           req.Unit,
		DonorName:      req.DonorName,
		PhoneNumber:    req.PhoneNumber,
		UPIOtherPerson: req.UPIOtherPerson,
		Sponsorship:    &slot.Name,
		Notes:          req.Notes,
		VolunteerName:  req.VolunteerName,
		Message:        req.Message,
		IsAnonymous:    req.IsAnonymous,
		PaymentMethod:  req.PaymentMethod,
		Status:         model.DonationCompleted,
		CampaignID:     req.CampaignID,
	}
	if uid, ok := middleware.UserID(c); ok {
		vid := strconv.FormatUint(uid, 10)
		donation.VolunteerID = &vid
	}
	if err := h.Donations.CreateTx(ctx, tx, &donation); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	if donation.CampaignID != nil {
		if err := h.Campaigns.AddAmountTx(ctx, tx, *donation.CampaignID, donation.Amount); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "campaign not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	committed = true

	created, err := h.Donations.GetByID(ctx, donation.ID)
	if err != nil {
		created = donation
	}

	go func(d model.Donation) {
		pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pcancel()
		_ = service.PublishDonationRecorded(pctx, queue.NewDonationRecordedEvent(d))
	}(created)

	return c.JSON(http.StatusCreated, echo.Map{
		"sponsorship": slot,
		"donation":    created,
	})
}
