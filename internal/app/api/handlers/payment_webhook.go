package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stitchlab/atelier/internal/app/service/notification"
	"github.com/stitchlab/atelier/internal/app/service/reconcile"
	"github.com/stitchlab/atelier/pkg/logctx"
)

// ApiPaymentWebhook receives the gateway's instant notifications. The gateway
// retries indefinitely on any non-200, so malformed or unverifiable payloads
// are logged and acknowledged rather than rejected; only an unresolvable
// invoice reference earns a 4xx.
func ApiPaymentWebhook(svc *reconcile.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)

		switch c.Request.Method {
		case http.MethodGet:
			// gateway connectivity probe
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		case http.MethodOptions:
			c.Status(http.StatusOK)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			lg.Errorw("webhook body read failed", "error", err.Error())
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		if len(body) == 0 {
			// empty-body delivery test
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		params, err := notification.ParsePayload(c.ContentType(), body)
		if err != nil {
			lg.Warnw("webhook payload unparseable", "content_type", c.ContentType(), "error", err.Error())
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		traceID := c.GetString("traceID")
		outcome, err := svc.Process(c.Request.Context(), params, traceID)
		if err != nil {
			lg.Errorw("webhook processing error", "outcome", string(outcome), "error", err.Error())
		}

		switch outcome {
		case reconcile.OutcomeInvoiceNotFound:
			c.JSON(http.StatusBadRequest, gin.H{"status": "unknown invoice"})
		case reconcile.OutcomeSettled:
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		default:
			// duplicates, ignored statuses, bad signatures and internal
			// errors all acknowledge the delivery; details stay in the logs
			c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		}
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, svc *reconcile.Service, log *zap.SugaredLogger) {
	r.Any("/webhook/payment", ApiPaymentWebhook(svc, log))
}
