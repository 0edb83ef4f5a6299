package artifact

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitchlab/atelier/internal/models"
	"github.com/stitchlab/atelier/internal/platform/storage"
	"github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/logctx"
	"github.com/stitchlab/atelier/pkg/metrics"
	"github.com/stitchlab/atelier/pkg/tool"
)

// Service copies a stock design's stored file into the paying order's
// attachment namespace once payment clears. Every step is upsert-safe, so
// redelivered notifications can repeat the copy without duplicating rows.
type Service struct {
	db    *gorm.DB
	store storage.ObjectStore
	cfg   *config.Config
	log   *zap.SugaredLogger
}

func NewService(db *gorm.DB, store storage.ObjectStore, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, store: store, cfg: cfg, log: log}
}

// CopyTemplateFile delivers the order's template file as an order attachment.
// No-op for custom orders and for templates without a stored file.
func (s *Service) CopyTemplateFile(ctx context.Context, orderID string) error {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order.TemplateID == nil {
		return nil
	}

	var tpl models.DesignTemplate
	if err := s.db.WithContext(ctx).Where("id = ?", *order.TemplateID).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logctx.FromCtx(ctx, s.log).Warnw("template missing for paid order", "order_id", orderID, "template_id", *order.TemplateID)
			return nil
		}
		return fmt.Errorf("failed to load template %s: %w", *order.TemplateID, err)
	}
	if !tpl.HasFile() {
		return nil
	}

	obj, err := s.store.Get(ctx, s.cfg.Storage.TemplateBucket, tpl.FilePath)
	if err != nil {
		metrics.ArtifactCopies.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to download template file: %w", err)
	}

	destPath := fmt.Sprintf("%s/%s", order.OrderNumber, tpl.FileName)
	if err := s.store.Put(ctx, s.cfg.Storage.AttachmentsBucket, &storage.Object{
		Key:         destPath,
		Data:        obj.Data,
		ContentType: obj.ContentType,
	}); err != nil {
		metrics.ArtifactCopies.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to upload order attachment: %w", err)
	}

	attachment := &models.OrderAttachment{
		ID:       tool.GenerateUUIDV7(),
		OrderID:  order.ID,
		FileName: tpl.FileName,
		FilePath: destPath,
		FileSize: int64(len(obj.Data)),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "file_path"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_size", "updated_at"}),
		}).
		Create(attachment).Error; err != nil {
		metrics.ArtifactCopies.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to register order attachment: %w", err)
	}

	metrics.ArtifactCopies.WithLabelValues("ok").Inc()
	logctx.FromCtx(ctx, s.log).Infow("template file delivered",
		"order_id", order.ID, "order_number", order.OrderNumber, "file", destPath, "size", len(obj.Data))
	return nil
}
