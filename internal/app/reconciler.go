/**
 * @description
 * This file contains the webhook reconciler: it takes decoded aggregator
 * notifications and folds them into the receipt store through the atomic
 * upsert, then broadcasts the resulting status change.
 *
 * The aggregator delivers at least once and in no particular order, so the
 * reconciler leans entirely on the pure state machine for idempotence and
 * tolerates notifications for references it never initiated (a shadow record
 * is created rather than erroring).
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/swiftloan/collection-service/internal/domain"
	"github.com/swiftloan/collection-service/internal/store"
	"github.com/swiftloan/collection-service/pkg/rabbitmq"
)

// NotificationReconciler applies aggregator notifications to stored receipts.
type NotificationReconciler struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
}

// NewNotificationReconciler creates a reconciler bound to a store and producer.
func NewNotificationReconciler(repo store.Repository, producer rabbitmq.Publisher) *NotificationReconciler {
	return &NotificationReconciler{repo: repo, eventProducer: producer}
}

// HandleNotification reconciles one notification event. A storage failure is
// returned for logging but must not stop the HTTP layer from acknowledging:
// withholding the ack only buys a redelivery storm, not durability.
func (r *NotificationReconciler) HandleNotification(ctx context.Context, event domain.NotificationEvent) (*domain.Receipt, error) {
	if event.Reference == "" {
		log.Printf("level=warn component=reconciler msg=\"notification without reference; ignoring\" status=%q", event.Status)
		return nil, nil
	}

	receipt, err := r.repo.UpsertReceipt(ctx, event.Reference, func(existing *domain.Receipt) (domain.Receipt, error) {
		return ApplyNotification(existing, event, time.Now().UTC()), nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile notification for %s: %w", event.Reference, err)
	}

	log.Printf("level=info component=reconciler reference=%s status=%s result_code=%s", event.Reference, receipt.Status, formatResultCode(event.ResultCode))
	publishReceiptEvent(ctx, r.eventProducer, receipt)
	return receipt, nil
}

func formatResultCode(code *int) string {
	if code == nil {
		return "absent"
	}
	return fmt.Sprintf("%d", *code)
}
