package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// ReportHandler предоставляет HTTP слой для жалоб на сообщения.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler создаёт хэндлер.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Report обрабатывает POST /api/marketplace/messages/:id/report.
func (h *ReportHandler) Report(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	messageID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReportMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var description *string
	if req.Description != "" {
		description = &req.Description
	}

	report, err := h.reports.ReportMessage(c.Request.Context(), userID, messageID, req.Reason, description)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// ListPending обрабатывает GET /api/admin/reports.
func (h *ReportHandler) ListPending(c *gin.Context) {
	page, limit := common.GetPagination(c)

	reports, err := h.reports.ListPending(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Review обрабатывает PUT /api/admin/reports/:id.
// Статус жалобы двигается только вперёд.
func (h *ReportHandler) Review(c *gin.Context) {
	reviewerID, err := currentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	reportID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ReviewReportRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	report, err := h.reports.ReviewReport(c.Request.Context(), reportID, reviewerID, req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}
