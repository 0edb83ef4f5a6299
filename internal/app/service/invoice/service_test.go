package invoice

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stitchlab/atelier/internal/app/service/checkout"
	"github.com/stitchlab/atelier/internal/models"
	cfgpkg "github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/tool"
	"github.com/stitchlab/atelier/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{},
		&models.Invoice{},
		&models.CustomerNotification{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	cfg := &cfgpkg.Config{Payment: cfgpkg.PaymentConfig{
		MerchantCode:    "MERCH01",
		CheckoutSecret:  "topsecret",
		CheckoutBaseURL: "https://pay.example.com/buy",
		Currency:        "USD",
		ReturnURL:       "/payment/success",
		CancelURL:       "/payment/cancel",
	}}
	return NewService(db, cfg, checkout.NewSigner(cfg), zap.NewNop().Sugar())
}

func seedOrder(t *testing.T, db *gorm.DB, customerID, number, price string) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:          tool.GenerateUUIDV7(),
		OrderNumber: number,
		CustomerID:  customerID,
		Title:       "Embroidery " + number,
		OrderType:   types.OrderTypeCustom,
		FinalPrice:  decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func TestGenerate_CreatesInvoiceAndLinksOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	o1 := seedOrder(t, db, "cust-1", "ORD-1001", "25.00")
	o2 := seedOrder(t, db, "cust-1", "ORD-1002", "95.00")

	res, err := svc.Generate(context.Background(), &GenerateRequest{
		OrderIDs:   []string{o1.ID, o2.ID},
		CustomerID: "cust-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrderCount)
	assert.Equal(t, "120.00", res.TotalAmount.StringFixed(2))
	assert.Contains(t, res.PaymentLink, "signature=")
	assert.Contains(t, res.PaymentLink, "order-ext-ref="+res.InvoiceID)

	var inv models.Invoice
	require.NoError(t, db.Where("id = ?", res.InvoiceID).First(&inv).Error)
	assert.Equal(t, types.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "120.00", inv.TotalAmount.StringFixed(2))
	assert.ElementsMatch(t, []string{o1.ID, o2.ID}, []string(inv.OrderIDs))
	assert.Equal(t, res.PaymentLink, inv.PaymentLink)

	var orders []*models.Order
	require.NoError(t, db.Where("id IN ?", []string{o1.ID, o2.ID}).Find(&orders).Error)
	for _, o := range orders {
		require.NotNil(t, o.InvoiceID)
		assert.Equal(t, res.InvoiceID, *o.InvoiceID)
		assert.Equal(t, types.OrderPaymentStatusPendingPayment, o.PaymentStatus)
	}

	var notifs []*models.CustomerNotification
	require.NoError(t, db.Where("customer_id = ?", "cust-1").Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.CustomerNotificationKindInvoiceCreated, notifs[0].Kind)
}

func TestGenerate_EmptyOrderList(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	_, err := svc.Generate(context.Background(), &GenerateRequest{CustomerID: "cust-1"})
	assert.ErrorIs(t, err, ErrNoOrders)
}

func TestGenerate_MissingOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	o := seedOrder(t, db, "cust-1", "ORD-2001", "10.00")

	_, err := svc.Generate(context.Background(), &GenerateRequest{
		OrderIDs:   []string{o.ID, tool.GenerateUUIDV7()},
		CustomerID: "cust-1",
	})
	assert.ErrorIs(t, err, ErrOrdersNotFound)
}

func TestGenerate_CustomerMismatchRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	mine := seedOrder(t, db, "cust-1", "ORD-3001", "10.00")
	theirs := seedOrder(t, db, "cust-2", "ORD-3002", "20.00")

	_, err := svc.Generate(context.Background(), &GenerateRequest{
		OrderIDs:   []string{mine.ID, theirs.ID},
		CustomerID: "cust-1",
	})
	assert.ErrorIs(t, err, ErrCustomerMismatch)

	var invoiceCount int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&invoiceCount).Error)
	assert.Zero(t, invoiceCount)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", mine.ID).First(&reloaded).Error)
	assert.Nil(t, reloaded.InvoiceID)
	assert.Equal(t, types.OrderPaymentStatusUnset, reloaded.PaymentStatus)
}

func TestGenerate_AlreadyInvoiced(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	o := seedOrder(t, db, "cust-1", "ORD-4001", "10.00")

	_, err := svc.Generate(context.Background(), &GenerateRequest{
		OrderIDs:   []string{o.ID},
		CustomerID: "cust-1",
	})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), &GenerateRequest{
		OrderIDs:   []string{o.ID},
		CustomerID: "cust-1",
	})
	assert.ErrorIs(t, err, ErrAlreadyInvoiced)

	var invoiceCount int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&invoiceCount).Error)
	assert.EqualValues(t, 1, invoiceCount)
}
