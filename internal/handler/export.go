package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/donation-tracker/internal/export"
)

// ExportHandler streams the Excel collection report.
type ExportHandler struct {
	Exporter *export.Exporter
}

func NewExportHandler(exporter *export.Exporter) *ExportHandler {
	if exporter == nil {
		panic("nil exporter passed to NewExportHandler")
	}
	return &ExportHandler{Exporter: exporter}
}

// Excel handles GET /export/excel (admin only). The workbook is built from
// live data on every request.
func (h *ExportHandler) Excel(c echo.Context) error {
	// Report generation runs a query per tower; allow more than the usual
	// handler budget.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	f, err := h.Exporter.Build(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "report generation failed"})
	}
	defer f.Close()

	filename := fmt.Sprintf("donation-report-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)

	_, err = f.WriteTo(c.Response())
	return err
}
