package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitchlab/atelier/internal/app/service/artifact"
	"github.com/stitchlab/atelier/internal/app/service/notification"
	notificationlog "github.com/stitchlab/atelier/internal/app/service/notification_log"
	"github.com/stitchlab/atelier/internal/models"
	"github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/logctx"
	"github.com/stitchlab/atelier/pkg/metrics"
	"github.com/stitchlab/atelier/pkg/tool"
	"github.com/stitchlab/atelier/pkg/types"
)

// Outcome classifies how a notification was handled. Only InvoiceNotFound is
// surfaced to the gateway as a non-200; everything else acknowledges the
// delivery so the gateway stops retrying.
type Outcome string

const (
	OutcomeSettled         Outcome = "settled"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeBadSignature    Outcome = "bad_signature"
	OutcomeAmountMismatch  Outcome = "amount_mismatch"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeInvoiceNotFound Outcome = "invoice_not_found"
	OutcomeError           Outcome = "error"
)

// Service is the webhook reconciliation state machine. Invoices only move
// pending -> paid; a declined payment never transitions anything.
type Service struct {
	db        *gorm.DB
	cfg       *config.Config
	verifier  *notification.Verifier
	artifacts *artifact.Service
	notifLog  *notificationlog.Service
	log       *zap.SugaredLogger
}

func NewService(db *gorm.DB, cfg *config.Config, verifier *notification.Verifier, artifacts *artifact.Service, notifLog *notificationlog.Service, log *zap.SugaredLogger) *Service {
	return &Service{db: db, cfg: cfg, verifier: verifier, artifacts: artifacts, notifLog: notifLog, log: log}
}

// Process runs one notification through idempotency, signature, amount and
// status checks, and settles the invoice when everything lines up.
func (s *Service) Process(ctx context.Context, params map[string]string, traceID string) (outcome Outcome, resErr error) {
	fields := notification.ExtractFields(params)
	lg := logctx.FromCtx(ctx, s.log)

	raw, _ := json.Marshal(params)
	s.notifLog.Save(ctx, &models.PaymentNotificationLog{
		ProviderReference: fields.ReferenceNumber,
		TraceID:           traceID,
		NotificationTime:  time.Now(),
		Data:              datatypes.JSON(raw),
		Status:            models.PaymentNotificationLogStatusReceived,
	})

	var invoiceID *string
	defer func() {
		status := models.PaymentNotificationLogStatusHandled
		resMap := map[string]any{"outcome": string(outcome)}
		if resErr != nil {
			status = models.PaymentNotificationLogStatusHandleFailed
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		resJSON := datatypes.JSON(resBytes)
		s.notifLog.Save(ctx, &models.PaymentNotificationLog{
			ProviderReference: fields.ReferenceNumber,
			InvoiceID:         invoiceID,
			TraceID:           traceID,
			NotificationTime:  time.Now(),
			Data:              datatypes.JSON(raw),
			Result:            &resJSON,
			Status:            status,
		})
		metrics.WebhookNotifications.WithLabelValues(string(outcome)).Inc()
	}()

	// Idempotency: a reference we have already settled is acknowledged
	// without side effects. This is the primary defense against the
	// gateway's at-least-once delivery.
	var byRef *models.Invoice
	if fields.ReferenceNumber != "" {
		var inv models.Invoice
		err := s.db.WithContext(ctx).Where("provider_reference = ?", fields.ReferenceNumber).First(&inv).Error
		switch {
		case err == nil:
			byRef = &inv
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return OutcomeError, fmt.Errorf("failed to look up invoice by reference: %w", err)
		}
	}
	if byRef.IsPaid() {
		invoiceID = &byRef.ID
		lg.Infow("duplicate notification for settled invoice", "reference", fields.ReferenceNumber, "invoice_id", byRef.ID)
		return OutcomeDuplicate, nil
	}

	ok, err := s.verifier.Verify(params)
	if err != nil {
		return OutcomeError, fmt.Errorf("signature verification unavailable: %w", err)
	}
	if !ok {
		lg.Warnw("notification signature mismatch", "reference", fields.ReferenceNumber)
		return OutcomeBadSignature, nil
	}

	// Resolve the target invoice: the merchant order id we put on the buy
	// link wins; fall back to the reference lookup above.
	inv := byRef
	if fields.MerchantOrderID != "" {
		var byID models.Invoice
		err := s.db.WithContext(ctx).Where("id = ?", fields.MerchantOrderID).First(&byID).Error
		switch {
		case err == nil:
			inv = &byID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return OutcomeError, fmt.Errorf("failed to load invoice %s: %w", fields.MerchantOrderID, err)
		}
	}
	if inv == nil {
		lg.Warnw("notification resolves to no invoice", "reference", fields.ReferenceNumber, "merchant_order_id", fields.MerchantOrderID)
		return OutcomeInvoiceNotFound, nil
	}
	invoiceID = &inv.ID
	if inv.IsPaid() {
		return OutcomeDuplicate, nil
	}

	amount, err := decimal.NewFromString(fields.Amount)
	if err != nil {
		return OutcomeError, fmt.Errorf("unparseable payment amount %q: %w", fields.Amount, err)
	}
	if inv.TotalAmount.Sub(amount).Abs().GreaterThan(types.AmountTolerance) {
		lg.Warnw("payment amount mismatch",
			"invoice_id", inv.ID, "expected", inv.TotalAmount.StringFixed(2), "got", amount.StringFixed(2))
		return OutcomeAmountMismatch, nil
	}

	// Unrecognized statuses are valid intermediate gateway states, not
	// failures; acknowledge and move on.
	if !s.cfg.Payment.IsSuccessStatus(fields.Status) {
		lg.Infow("notification status outside success allow-list", "invoice_id", inv.ID, "status", fields.Status)
		return OutcomeIgnored, nil
	}

	settled, err := s.settle(ctx, inv, fields)
	if err != nil {
		return OutcomeError, err
	}
	if !settled {
		// lost the race against a concurrent delivery
		return OutcomeDuplicate, nil
	}

	for _, orderID := range inv.OrderIDs {
		if err := s.artifacts.CopyTemplateFile(ctx, orderID); err != nil {
			// best-effort: the payment is accepted, a file-copy glitch
			// must not turn into a gateway retry storm
			lg.Errorw("post-payment artifact copy failed", "invoice_id", inv.ID, "order_id", orderID, "error", err.Error())
		}
	}
	s.notifyCustomer(ctx, inv)

	lg.Infow("invoice settled",
		"invoice_id", inv.ID, "reference", fields.ReferenceNumber,
		"amount", amount.StringFixed(2), "method", fields.PayMethod)
	return OutcomeSettled, nil
}

// settle flips the invoice and its orders to paid. The invoice update is
// conditional on status <> paid so concurrent duplicate deliveries cannot
// both run the success path; the loser observes zero affected rows.
func (s *Service) settle(ctx context.Context, inv *models.Invoice, fields notification.Fields) (bool, error) {
	settled := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status <> ?", inv.ID, types.InvoiceStatusPaid).
			Updates(map[string]any{
				"status":             types.InvoiceStatusPaid,
				"provider_reference": fields.ReferenceNumber,
				"provider_order_id":  fields.OrderNumber,
				"payment_method":     fields.PayMethod,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.Order{}).
			Where("id IN ?", []string(inv.OrderIDs)).
			Update("payment_status", types.OrderPaymentStatusPaid).Error; err != nil {
			return fmt.Errorf("failed to mark orders paid: %w", err)
		}
		settled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return settled, nil
}

func (s *Service) notifyCustomer(ctx context.Context, inv *models.Invoice) {
	data, _ := json.Marshal(map[string]any{
		"invoice_id":   inv.ID,
		"total_amount": inv.TotalAmount.StringFixed(2),
	})
	n := &models.CustomerNotification{
		ID:         tool.GenerateUUIDV7(),
		CustomerID: inv.CustomerID,
		Kind:       models.CustomerNotificationKindInvoicePaid,
		Message:    fmt.Sprintf("Payment of %s received, thank you!", inv.TotalAmount.StringFixed(2)),
		Data:       datatypes.JSON(data),
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save customer notification: %v", err)
	}
}
