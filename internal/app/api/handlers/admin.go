package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	invoicesvc "github.com/stitchlab/atelier/internal/app/service/invoice"
	"github.com/stitchlab/atelier/internal/models"
	"github.com/stitchlab/atelier/pkg/response"
	"github.com/stitchlab/atelier/pkg/types"
)

type ListInvoicesRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type InvoiceItem struct {
	ID                string              `json:"id"`
	CustomerID        string              `json:"customer_id"`
	OrderIDs          []string            `json:"order_ids"`
	OrderCount        int                 `json:"order_count"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	Status            types.InvoiceStatus `json:"status"`
	ProviderReference *string             `json:"provider_reference"`
	PaymentMethod     *string             `json:"payment_method"`
	PaymentLink       string              `json:"payment_link"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func toInvoiceItem(m *models.Invoice) *InvoiceItem {
	return &InvoiceItem{
		ID:                m.ID,
		CustomerID:        m.CustomerID,
		OrderIDs:          m.OrderIDs,
		OrderCount:        len(m.OrderIDs),
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		ProviderReference: m.ProviderReference,
		PaymentMethod:     m.PaymentMethod,
		PaymentLink:       m.PaymentLink,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

type ListInvoicesResponse struct {
	Items []*InvoiceItem `json:"items"`
	Total int64          `json:"total"`
}

// @Summary      List Invoices (Admin)
// @Description  Retrieves a paginated and filterable list of invoices.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListInvoicesRequest true "List invoices request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListInvoices
// @Router       /api/v1/admin/list_invoices [post]
func ApiListInvoices(svc *invoicesvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListInvoicesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		scanReq := &invoicesvc.ScanInvoicesRequest{Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder}
		res, err := svc.ScanInvoices(c.Request.Context(), scanReq)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.Invoice, _ int) *InvoiceItem { return toInvoiceItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListInvoicesResponse{Items: items, Total: res.Total}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, svc *invoicesvc.Service) {
	r.POST("/generate_invoice", ApiGenerateInvoice(svc))
	r.POST("/list_invoices", ApiListInvoices(svc))
}
