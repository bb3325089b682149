/**
 * @description
 * This file contains the core business logic for the collection-service. The `Service`
 * struct orchestrates payment initiation, coordinating between the receipt store,
 * the SwiftWallet aggregator client, and the message broker.
 *
 * Key features:
 * - Validates and normalizes initiation input before any outbound call.
 * - Persists exactly one initial receipt per initiation, even on failure paths,
 *   so the caller can always look up what happened by reference.
 * - Publishes receipt lifecycle events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, errors, fmt, log, math, strings, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/swiftwallet, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swiftloan/collection-service/internal/domain"
	"github.com/swiftloan/collection-service/internal/store"
	"github.com/swiftloan/collection-service/pkg/rabbitmq"
	"github.com/swiftloan/collection-service/pkg/swiftwallet"
)

const receiptEventsExchange = "collection_events"

var (
	// ErrInvalidPhone rejects initiation before any outbound call or store write.
	ErrInvalidPhone = errors.New("invalid phone format")
	// ErrInvalidAmount rejects initiation before any outbound call or store write.
	ErrInvalidAmount = errors.New("amount must be at least 1")
	// ErrUpstreamRejected means the aggregator answered but declined the STK push.
	ErrUpstreamRejected = errors.New("payment initiation rejected")
	// ErrUpstreamUnavailable means the initiation call itself failed.
	ErrUpstreamUnavailable = errors.New("payment aggregator unavailable")
	// ErrRateLimited means the phone number exceeded the initiation rate limit.
	ErrRateLimited = errors.New("too many payment attempts, slow down")
)

// CollectionClient is the outbound aggregator surface the service depends on.
type CollectionClient interface {
	InitiateCollection(ctx context.Context, req swiftwallet.CollectionRequest) (*swiftwallet.CollectionResponse, error)
}

// RateLimiter throttles initiation attempts per subject. Implementations must
// be nil-receiver safe so the limiter stays optional.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for collections.
type Service struct {
	repo              store.Repository
	wallet            CollectionClient
	eventProducer     rabbitmq.Publisher
	defaultLoanAmount string

	rateLimiter       RateLimiter
	initiationsPerMin int
}

// NewService creates a new collection service instance.
func NewService(repo store.Repository, wallet CollectionClient, producer rabbitmq.Publisher, defaultLoanAmount string) *Service {
	if defaultLoanAmount == "" {
		defaultLoanAmount = fallbackLoanAmount
	}
	return &Service{
		repo:              repo,
		wallet:            wallet,
		eventProducer:     producer,
		defaultLoanAmount: defaultLoanAmount,
	}
}

// SetRateLimiter enables per-phone throttling of STK pushes. A nil limiter or
// a non-positive limit leaves initiation unthrottled.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.initiationsPerMin = perMinute
}

// InitiateCollection validates the request, fires the STK push, and persists
// the initial receipt. On failure paths the returned receipt (when non-nil) is
// the persisted error/stk_failed snapshot, alongside the classified error.
func (s *Service) InitiateCollection(ctx context.Context, req domain.InitiateCollectionRequest) (*domain.Receipt, error) {
	phone, ok := domain.NormalizePhone(req.Phone)
	if !ok {
		return nil, ErrInvalidPhone
	}
	amount := int64(math.Round(req.Amount))
	if amount < 1 {
		return nil, ErrInvalidAmount
	}

	if s.rateLimiter != nil && s.initiationsPerMin > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, "stk_initiate", phone, s.initiationsPerMin, time.Minute)
		if err != nil {
			log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" phone=%s err=%v", phone, err)
		} else if count > s.initiationsPerMin {
			log.Printf("level=warn component=service outcome=throttled phone=%s count=%d retry_after=%d", phone, count, retryAfter)
			return nil, ErrRateLimited
		}
	}

	loanAmount := strings.TrimSpace(req.LoanAmount)
	if loanAmount == "" {
		loanAmount = s.defaultLoanAmount
	}

	reference := newReference()
	now := time.Now().UTC()

	resp, err := s.wallet.InitiateCollection(ctx, swiftwallet.CollectionRequest{
		Amount:            amount,
		PhoneNumber:       phone,
		ExternalReference: reference,
	})
	if err != nil {
		log.Printf("level=error component=service op=initiate reference=%s msg=\"aggregator call failed\" err=%v", reference, err)
		receipt := s.persistInitialReceipt(ctx, reference, NewErrorReceipt(reference, phone, loanAmount, amount, now))
		return receipt, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if !resp.Success {
		log.Printf("level=warn component=service op=initiate reference=%s outcome=rejected reason=%q", reference, resp.FailureReason())
		receipt := s.persistInitialReceipt(ctx, reference, NewSTKFailedReceipt(reference, phone, loanAmount, amount, resp.TransactionID, now))
		return receipt, fmt.Errorf("%w: %s", ErrUpstreamRejected, resp.FailureReason())
	}

	receipt := s.persistInitialReceipt(ctx, reference, NewPendingReceipt(reference, phone, loanAmount, amount, resp.TransactionID, now))
	if receipt == nil {
		// The push went out but we could not record it; surface as storage failure.
		return nil, fmt.Errorf("persist pending receipt %s: write failed", reference)
	}

	log.Printf("level=info component=service op=initiate reference=%s outcome=pending phone=%s amount=%d", reference, phone, amount)
	publishReceiptEvent(ctx, s.eventProducer, receipt)
	return receipt, nil
}

// persistInitialReceipt writes the initial record, logging rather than
// propagating storage failures on the error paths: a failed initiation must
// still report its classified error to the caller.
func (s *Service) persistInitialReceipt(ctx context.Context, reference string, record domain.Receipt) *domain.Receipt {
	receipt, err := s.repo.UpsertReceipt(ctx, reference, func(existing *domain.Receipt) (domain.Receipt, error) {
		return record, nil
	})
	if err != nil {
		log.Printf("level=error component=service op=persist_receipt reference=%s status=%s err=%v", reference, record.Status, err)
		return nil
	}
	return receipt
}

// LookupReceipt returns the stored receipt for a reference.
func (s *Service) LookupReceipt(ctx context.Context, reference string) (*domain.Receipt, error) {
	return s.repo.GetReceipt(ctx, reference)
}

// ReleaseReceipt applies an administrative transition (success or
// loan_released) to an existing receipt.
func (s *Service) ReleaseReceipt(ctx context.Context, reference, target string) (*domain.Receipt, error) {
	receipt, err := s.repo.UpsertReceipt(ctx, reference, func(existing *domain.Receipt) (domain.Receipt, error) {
		if existing == nil {
			return domain.Receipt{}, store.ErrReceiptNotFound
		}
		return ApplyAdminStatus(*existing, target, time.Now().UTC())
	})
	if err != nil {
		if errors.Is(err, store.ErrReceiptNotFound) || errors.Is(err, ErrIllegalTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("release receipt %s: %w", reference, err)
	}

	log.Printf("level=info component=service op=release reference=%s status=%s", reference, target)
	publishReceiptEvent(ctx, s.eventProducer, receipt)
	return receipt, nil
}

// newReference generates a fresh time-derived reference. Uniqueness per
// request is what matters; monotonicity is not required.
func newReference() string {
	return fmt.Sprintf("ORDER-%d", time.Now().UnixMilli())
}

// publishReceiptEvent broadcasts a lifecycle change; delivery is best effort.
func publishReceiptEvent(ctx context.Context, producer rabbitmq.Publisher, receipt *domain.Receipt) {
	if producer == nil || receipt == nil {
		return
	}
	event := rabbitmq.ReceiptStatusEvent{
		EventID:   uuid.New(),
		Reference: receipt.Reference,
		Status:    receipt.Status,
		Phone:     receipt.Phone,
		Amount:    receipt.FeeAmount,
		Timestamp: receipt.Timestamp,
	}
	routingKey := "receipt.status." + receipt.Status
	if err := producer.Publish(ctx, receiptEventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"receipt event publish failed\" reference=%s routing_key=%s err=%v", receipt.Reference, routingKey, err)
	}
}
