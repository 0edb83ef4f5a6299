package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stitchlab/atelier/internal/app/service/artifact"
	"github.com/stitchlab/atelier/internal/app/service/notification"
	notificationlog "github.com/stitchlab/atelier/internal/app/service/notification_log"
	"github.com/stitchlab/atelier/internal/models"
	"github.com/stitchlab/atelier/internal/platform/storage"
	cfgpkg "github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/tool"
	"github.com/stitchlab/atelier/pkg/types"
)

type memStore struct {
	objects map[string]*storage.Object
}

func (m *memStore) Get(_ context.Context, bucket, key string) (*storage.Object, error) {
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return obj, nil
}

func (m *memStore) Put(_ context.Context, bucket string, obj *storage.Object) error {
	m.objects[bucket+"/"+obj.Key] = obj
	return nil
}

type fixture struct {
	db       *gorm.DB
	cfg      *cfgpkg.Config
	store    *memStore
	verifier *notification.Verifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{},
		&models.Invoice{},
		&models.DesignTemplate{},
		&models.OrderAttachment{},
		&models.CustomerNotification{},
		&models.PaymentNotificationLog{},
	))

	cfg := &cfgpkg.Config{
		Payment: cfgpkg.PaymentConfig{
			NotificationSecret: "secretword",
			SuccessStatuses:    []string{"COMPLETE", "SUCCESS", "AUTHRECEIVED"},
		},
		Storage: cfgpkg.StorageConfig{
			TemplateBucket:    "design-templates",
			AttachmentsBucket: "order-attachments",
		},
	}
	log := zap.NewNop().Sugar()
	store := &memStore{objects: map[string]*storage.Object{}}
	verifier := notification.NewVerifier(cfg)
	svc := NewService(db, cfg, verifier,
		artifact.NewService(db, store, cfg, log),
		notificationlog.New(db, log), log)
	return &fixture{db: db, cfg: cfg, store: store, verifier: verifier, svc: svc}
}

// seedInvoice creates a pending invoice over two orders, the first of which
// is a stock design with a stored template file.
func (f *fixture) seedInvoice(t *testing.T, total string) (*models.Invoice, *models.Order, *models.Order) {
	t.Helper()
	tpl := &models.DesignTemplate{
		ID:       tool.GenerateUUIDV7(),
		Name:     "Monogram",
		FileName: "monogram.dst",
		FilePath: "designs/monogram.dst",
	}
	require.NoError(t, f.db.Create(tpl).Error)
	f.store.objects["design-templates/designs/monogram.dst"] = &storage.Object{
		Key:  tpl.FilePath,
		Data: []byte("stitches"),
	}

	invID := tool.GenerateUUIDV7()
	stock := &models.Order{
		ID:            tool.GenerateUUIDV7(),
		OrderNumber:   "ORD-9001",
		CustomerID:    "cust-1",
		OrderType:     types.OrderTypeStockDesign,
		TemplateID:    &tpl.ID,
		InvoiceID:     &invID,
		PaymentStatus: types.OrderPaymentStatusPendingPayment,
		FinalPrice:    decimal.RequireFromString("25.00"),
	}
	custom := &models.Order{
		ID:            tool.GenerateUUIDV7(),
		OrderNumber:   "ORD-9002",
		CustomerID:    "cust-1",
		OrderType:     types.OrderTypeCustom,
		InvoiceID:     &invID,
		PaymentStatus: types.OrderPaymentStatusPendingPayment,
		FinalPrice:    decimal.RequireFromString("95.00"),
	}
	require.NoError(t, f.db.Create(stock).Error)
	require.NoError(t, f.db.Create(custom).Error)

	inv := &models.Invoice{
		ID:          invID,
		CustomerID:  "cust-1",
		OrderIDs:    datatypes.NewJSONSlice([]string{stock.ID, custom.ID}),
		TotalAmount: decimal.RequireFromString(total),
		Status:      types.InvoiceStatusPending,
	}
	require.NoError(t, f.db.Create(inv).Error)
	return inv, stock, custom
}

// signedParams builds a gateway notification carrying a valid hash.
func (f *fixture) signedParams(invoiceID, reference, status, amount string) map[string]string {
	params := map[string]string{
		notification.ParamReferenceNumber: reference,
		notification.ParamOrderNumber:     "GW-" + reference,
		notification.ParamStatus:          status,
		notification.ParamAmount:          amount,
		notification.ParamPayMethod:       "Visa",
		notification.ParamMerchantOrderID: invoiceID,
	}
	params[notification.ParamHash] = f.verifier.ComputeHash(params)
	return params
}

func TestProcess_SettlesInvoice(t *testing.T) {
	f := newFixture(t)
	inv, stock, custom := f.seedInvoice(t, "120.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-1", "COMPLETE", "120.00"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, outcome)

	var reloaded models.Invoice
	require.NoError(t, f.db.Where("id = ?", inv.ID).First(&reloaded).Error)
	assert.Equal(t, types.InvoiceStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.ProviderReference)
	assert.Equal(t, "REF-1", *reloaded.ProviderReference)
	require.NotNil(t, reloaded.PaymentMethod)
	assert.Equal(t, "Visa", *reloaded.PaymentMethod)

	var orders []*models.Order
	require.NoError(t, f.db.Where("id IN ?", []string{stock.ID, custom.ID}).Find(&orders).Error)
	for _, o := range orders {
		assert.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)
	}

	// template delivered for the stock order only
	_, copied := f.store.objects["order-attachments/ORD-9001/monogram.dst"]
	assert.True(t, copied)
	var attachments []*models.OrderAttachment
	require.NoError(t, f.db.Find(&attachments).Error)
	require.Len(t, attachments, 1)
	assert.Equal(t, stock.ID, attachments[0].OrderID)

	var notifs []*models.CustomerNotification
	require.NoError(t, f.db.Where("kind = ?", models.CustomerNotificationKindInvoicePaid).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, "cust-1", notifs[0].CustomerID)
}

func TestProcess_RedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")
	params := f.signedParams(inv.ID, "REF-2", "COMPLETE", "120.00")

	outcome, err := f.svc.Process(context.Background(), params, "trace-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeSettled, outcome)

	outcome, err = f.svc.Process(context.Background(), params, "trace-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	var attachmentCount int64
	require.NoError(t, f.db.Model(&models.OrderAttachment{}).Count(&attachmentCount).Error)
	assert.EqualValues(t, 1, attachmentCount)

	var notifCount int64
	require.NoError(t, f.db.Model(&models.CustomerNotification{}).
		Where("kind = ?", models.CustomerNotificationKindInvoicePaid).Count(&notifCount).Error)
	assert.EqualValues(t, 1, notifCount)
}

func TestProcess_DuplicateShortCircuitsBeforeSignature(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")
	ref := "REF-3"
	inv.Status = types.InvoiceStatusPaid
	inv.ProviderReference = &ref
	require.NoError(t, f.db.Save(inv).Error)

	params := f.signedParams(inv.ID, ref, "COMPLETE", "120.00")
	params[notification.ParamHash] = "garbage"

	outcome, err := f.svc.Process(context.Background(), params, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestProcess_BadSignature(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")
	params := f.signedParams(inv.ID, "REF-4", "COMPLETE", "120.00")
	params[notification.ParamAmount] = "999.00"

	outcome, err := f.svc.Process(context.Background(), params, "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBadSignature, outcome)

	var reloaded models.Invoice
	require.NoError(t, f.db.Where("id = ?", inv.ID).First(&reloaded).Error)
	assert.Equal(t, types.InvoiceStatusPending, reloaded.Status)
}

func TestProcess_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "48.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-5", "COMPLETE", "47.50"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmountMismatch, outcome)

	var reloaded models.Invoice
	require.NoError(t, f.db.Where("id = ?", inv.ID).First(&reloaded).Error)
	assert.Equal(t, types.InvoiceStatusPending, reloaded.Status)
}

func TestProcess_AmountWithinTolerance(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "48.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-6", "COMPLETE", "48.01"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, outcome)
}

func TestProcess_UnrecognizedStatusIsIgnored(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-7", "PENDING", "120.00"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	var reloaded models.Invoice
	require.NoError(t, f.db.Where("id = ?", inv.ID).First(&reloaded).Error)
	assert.Equal(t, types.InvoiceStatusPending, reloaded.Status)
}

func TestProcess_StatusMatchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-8", "complete", "120.00"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSettled, outcome)
}

func TestProcess_InvoiceNotFound(t *testing.T) {
	f := newFixture(t)
	f.seedInvoice(t, "120.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(tool.GenerateUUIDV7(), "REF-9", "COMPLETE", "120.00"), "trace-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvoiceNotFound, outcome)
}

func TestProcess_UnparseableAmount(t *testing.T) {
	f := newFixture(t)
	inv, _, _ := f.seedInvoice(t, "120.00")

	outcome, err := f.svc.Process(context.Background(), f.signedParams(inv.ID, "REF-10", "COMPLETE", "not-a-number"), "trace-1")
	require.Error(t, err)
	assert.Equal(t, OutcomeError, outcome)
}
