package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/stitchlab/atelier/internal/app/api/server"
	"github.com/stitchlab/atelier/internal/app/service/artifact"
	"github.com/stitchlab/atelier/internal/app/service/checkout"
	invoicesvc "github.com/stitchlab/atelier/internal/app/service/invoice"
	"github.com/stitchlab/atelier/internal/app/service/notification"
	notificationlog "github.com/stitchlab/atelier/internal/app/service/notification_log"
	"github.com/stitchlab/atelier/internal/app/service/reconcile"
	"github.com/stitchlab/atelier/internal/platform/db"
	"github.com/stitchlab/atelier/internal/platform/storage"
	"github.com/stitchlab/atelier/pkg/config"
	"github.com/stitchlab/atelier/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	storage.Module,
	server.Module,
	checkout.Module,
	notification.Module,
	notificationlog.Module,
	artifact.Module,
	invoicesvc.Module,
	reconcile.Module,
)
