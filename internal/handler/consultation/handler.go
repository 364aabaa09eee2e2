package consultation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/internal/handler"
	"github.com/jwalitptl/clinic-console/internal/model"
	consultationService "github.com/jwalitptl/clinic-console/internal/service/consultation"
	apperrors "github.com/jwalitptl/clinic-console/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Service interface {
	List(ctx context.Context, clinicID uuid.UUID, status string, page model.Pagination) (*consultationService.Page, error)
	ExportXLSX(ctx context.Context, clinicID uuid.UUID, status string) ([]byte, error)
}

type Handler struct {
	service   Service
	operators handler.OperatorResolver
}

func NewHandler(service Service, operators handler.OperatorResolver) *Handler {
	return &Handler{service: service, operators: operators}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("", h.ListConsultations)
		consultations.GET("/export", h.ExportConsultations)
	}
}

type listQuery struct {
	model.Pagination
	Status string `form:"status" binding:"omitempty,max=20"`
}

func (h *Handler) ListConsultations(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.Fail(c, apperrors.Validationf("invalid query: %v", err))
		return
	}
	clinicID, ok := h.clinic(c)
	if !ok {
		return
	}

	page, err := h.service.List(c.Request.Context(), clinicID, q.Status, q.Pagination)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(page))
}

func (h *Handler) ExportConsultations(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.Fail(c, apperrors.Validationf("invalid query: %v", err))
		return
	}
	clinicID, ok := h.clinic(c)
	if !ok {
		return
	}

	data, err := h.service.ExportXLSX(c.Request.Context(), clinicID, q.Status)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	filename := fmt.Sprintf("consultations-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// clinic returns the caller's clinic. Operators without one have nothing to list.
func (h *Handler) clinic(c *gin.Context) (uuid.UUID, bool) {
	op, err := handler.Operator(c, h.operators)
	if err != nil {
		handler.Fail(c, err)
		return uuid.Nil, false
	}
	if !op.HasClinic() {
		handler.Fail(c, apperrors.NotFound("clinic", nil))
		return uuid.Nil, false
	}
	return *op.HospitalID, true
}
