package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitchlab/atelier/internal/app/service/checkout"
	"github.com/stitchlab/atelier/internal/models"
	"github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/logctx"
	"github.com/stitchlab/atelier/pkg/metrics"
	"github.com/stitchlab/atelier/pkg/tool"
	"github.com/stitchlab/atelier/pkg/types"
)

var (
	ErrNoOrders         = errors.New("order id list is empty")
	ErrOrdersNotFound   = errors.New("one or more orders do not exist")
	ErrCustomerMismatch = errors.New("order does not belong to the stated customer")
	// ErrAlreadyInvoiced: the order already carries a pending or paid invoice.
	// Regenerating is neither replace nor merge; the caller has to resolve it.
	ErrAlreadyInvoiced = errors.New("order already has an invoice")
)

type Service struct {
	db     *gorm.DB
	cfg    *config.Config
	signer *checkout.Signer
	log    *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *config.Config, signer *checkout.Signer, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, signer: signer, log: log}
}

type GenerateRequest struct {
	OrderIDs   []string
	CustomerID string
	ReturnURL  string
	CancelURL  string
}

type GenerateResult struct {
	InvoiceID   string          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentLink string          `json:"payment_link"`
	OrderCount  int             `json:"order_count"`
}

// Generate turns "pay these orders" into a persisted pending invoice plus a
// signed checkout link. Invoice insert and order update run in one
// transaction: either every order points at the new invoice or none does.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if len(req.OrderIDs) == 0 {
		return nil, ErrNoOrders
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.cfg.Payment.ReturnURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.Payment.CancelURL
	}

	var result *GenerateResult
	var inv *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []*models.Order
		if err := tx.Where("id IN ?", req.OrderIDs).Find(&orders).Error; err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		if len(orders) != len(req.OrderIDs) {
			return ErrOrdersNotFound
		}

		total := decimal.Zero
		items := make([]types.LineItem, 0, len(orders))
		orderIDs := make([]string, 0, len(orders))
		for _, o := range orders {
			if o.CustomerID != req.CustomerID {
				return ErrCustomerMismatch
			}
			if o.InvoiceID != nil {
				return ErrAlreadyInvoiced
			}
			total = total.Add(o.FinalPrice)
			items = append(items, types.LineItem{Name: o.DisplayName(), UnitPrice: o.FinalPrice, Quantity: 1})
			orderIDs = append(orderIDs, o.ID)
		}

		inv = &models.Invoice{
			ID:          tool.GenerateUUIDV7(),
			CustomerID:  req.CustomerID,
			OrderIDs:    datatypes.NewJSONSlice(orderIDs),
			TotalAmount: total,
			Status:      types.InvoiceStatusPending,
		}
		if err := tx.Create(inv).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		link, err := s.signer.BuildLink(checkout.LinkRequest{
			InvoiceID: inv.ID,
			Items:     items,
			ReturnURL: returnURL,
			CancelURL: cancelURL,
		})
		if err != nil {
			return fmt.Errorf("failed to build payment link: %w", err)
		}
		inv.PaymentLink = link
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
			Update("payment_link", link).Error; err != nil {
			return fmt.Errorf("failed to store payment link: %w", err)
		}

		if err := tx.Model(&models.Order{}).Where("id IN ?", orderIDs).
			Updates(map[string]any{
				"invoice_id":     inv.ID,
				"payment_status": types.OrderPaymentStatusPendingPayment,
			}).Error; err != nil {
			return fmt.Errorf("failed to link orders to invoice: %w", err)
		}

		result = &GenerateResult{
			InvoiceID:   inv.ID,
			TotalAmount: total,
			PaymentLink: link,
			OrderCount:  len(orders),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InvoicesGenerated.Inc()
	s.notifyCustomer(ctx, inv, result.OrderCount)

	logctx.FromCtx(ctx, s.log).Infow("invoice generated",
		"invoice_id", result.InvoiceID, "customer_id", req.CustomerID,
		"order_count", result.OrderCount, "total", result.TotalAmount.StringFixed(2))
	return result, nil
}

// notifyCustomer records an in-app notification summarizing the invoice.
// Failure here does not fail the generation.
func (s *Service) notifyCustomer(ctx context.Context, inv *models.Invoice, orderCount int) {
	data, _ := json.Marshal(map[string]any{
		"invoice_id":   inv.ID,
		"order_count":  orderCount,
		"total_amount": inv.TotalAmount.StringFixed(2),
	})
	n := &models.CustomerNotification{
		ID:         tool.GenerateUUIDV7(),
		CustomerID: inv.CustomerID,
		Kind:       models.CustomerNotificationKindInvoiceCreated,
		Message:    fmt.Sprintf("Invoice for %d order(s) totaling %s is ready for payment.", orderCount, inv.TotalAmount.StringFixed(2)),
		Data:       datatypes.JSON(data),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save customer notification: %v", err)
	}
}
