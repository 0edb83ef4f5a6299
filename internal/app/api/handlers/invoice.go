package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitchlab/atelier/internal/app/service/checkout"
	invoicesvc "github.com/stitchlab/atelier/internal/app/service/invoice"
)

type GenerateInvoiceRequest struct {
	OrderIDs   []string `json:"orderIds"`
	CustomerID string   `json:"customerId"`
	ReturnURL  string   `json:"returnUrl"`
	CancelURL  string   `json:"cancelUrl"`
}

type GenerateInvoiceResponse struct {
	Success bool                       `json:"success"`
	Invoice *invoicesvc.GenerateResult `json:"invoice,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// @Summary      Generate Invoice (Admin)
// @Description  Creates a pending invoice covering the given orders and returns a signed checkout link.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body GenerateInvoiceRequest true "Orders to invoice"
// @Success      200  {object}  GenerateInvoiceResponse
// @Router       /api/v1/admin/generate_invoice [post]
func ApiGenerateInvoice(svc *invoicesvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, GenerateInvoiceResponse{Error: err.Error()})
			return
		}
		if req.CustomerID == "" {
			c.JSON(http.StatusBadRequest, GenerateInvoiceResponse{Error: "customerId is required"})
			return
		}

		res, err := svc.Generate(c.Request.Context(), &invoicesvc.GenerateRequest{
			OrderIDs:   req.OrderIDs,
			CustomerID: req.CustomerID,
			ReturnURL:  req.ReturnURL,
			CancelURL:  req.CancelURL,
		})
		if err != nil {
			c.JSON(invoiceErrorStatus(err), GenerateInvoiceResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, GenerateInvoiceResponse{Success: true, Invoice: res})
	}
}

func invoiceErrorStatus(err error) int {
	switch {
	case errors.Is(err, invoicesvc.ErrNoOrders):
		return http.StatusBadRequest
	case errors.Is(err, invoicesvc.ErrOrdersNotFound), errors.Is(err, invoicesvc.ErrCustomerMismatch):
		return http.StatusNotFound
	case errors.Is(err, invoicesvc.ErrAlreadyInvoiced):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrNotConfigured), errors.Is(err, checkout.ErrNoLineItems):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
