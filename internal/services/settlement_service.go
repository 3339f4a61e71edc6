package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
	apperrors "github.com/clubworks/atrium/pkg/errors"
	"github.com/clubworks/atrium/pkg/logger"
	"github.com/clubworks/atrium/pkg/metrics"
)

// SettlementService converts completed payment-provider events into confirmed
// bookings. Deliveries are at-least-once and possibly concurrent; the unique
// index on the payment reference is the sole source of idempotency truth.
type SettlementService struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// SettlementServiceOption customises the service.
type SettlementServiceOption func(*SettlementService)

// WithSettlementClock overrides the time source, primarily for tests.
func WithSettlementClock(now func() time.Time) SettlementServiceOption {
	return func(s *SettlementService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSettlementService constructs a settlement service once a database handle
// is supplied.
func NewSettlementService(db *gorm.DB, opts ...SettlementServiceOption) (*SettlementService, error) {
	if db == nil {
		return nil, errors.New("settlement service: db is required")
	}
	s := &SettlementService{
		db:  db,
		now: time.Now,
		log: logger.WithModule("settlement"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PaymentCompletedInput carries the payment provider's completion event.
// Signature verification happens upstream, before this service is invoked.
type PaymentCompletedInput struct {
	EventID            string
	MemberID           string
	PaymentReferenceID string
	AmountPence        int64
}

// ReconciliationResult reports what a delivery did. Created is false when the
// payment reference had already been settled; that is a success, not an error.
type ReconciliationResult struct {
	Created   bool   `json:"created"`
	BookingID string `json:"booking_id"`
}

// ReconcilePayment settles one payment completion event.
//
// At most one confirmed booking is ever produced per payment reference. A
// duplicate delivery, sequential or concurrent, resolves to the existing
// booking. Capacity is checked against confirmed bookings before the seat is
// granted; the booking insert and the capacity check share one transaction.
// The payment ledger row is written best-effort after commit: losing it never
// un-settles the booking.
func (s *SettlementService) ReconcilePayment(ctx context.Context, input PaymentCompletedInput) (ReconciliationResult, error) {
	if s == nil {
		return ReconciliationResult{}, errors.New("settlement service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	eventID := strings.TrimSpace(input.EventID)
	memberID := strings.TrimSpace(input.MemberID)
	paymentRef := strings.TrimSpace(input.PaymentReferenceID)
	if eventID == "" || memberID == "" || paymentRef == "" {
		return ReconciliationResult{}, apperrors.NewBadRequest("event id, member id and payment reference are required")
	}

	result, err := s.reconcile(ctx, eventID, memberID, paymentRef, input.AmountPence)
	switch {
	case err != nil:
		metrics.Settlements.WithLabelValues("rejected").Inc()
	case result.Created:
		metrics.Settlements.WithLabelValues("created").Inc()
	default:
		metrics.Settlements.WithLabelValues("duplicate").Inc()
	}
	return result, err
}

func (s *SettlementService) reconcile(ctx context.Context, eventID, memberID, paymentRef string, amountPence int64) (ReconciliationResult, error) {
	var result ReconciliationResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Booking
		err := tx.Where("payment_reference_id = ?", paymentRef).First(&existing).Error
		if err == nil {
			s.log.Info("payment reference already settled",
				zap.String("payment_reference_id", paymentRef),
				zap.String("booking_id", existing.ID),
			)
			result = ReconciliationResult{Created: false, BookingID: existing.ID}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var event models.Event
		if err := tx.First(&event, "id = ?", eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrEventNotBookable.WithMessage("event " + eventID + " not found")
			}
			return err
		}
		if !event.Bookable() {
			return apperrors.ErrEventNotBookable.WithMessage(
				fmt.Sprintf("event %q is %s and not open for booking", event.Title, event.Status))
		}

		if event.Capacity != nil {
			var confirmed int64
			err := tx.Model(&models.Booking{}).
				Where("event_id = ? AND status = ?", eventID, models.BookingStatusConfirmed).
				Count(&confirmed).Error
			if err != nil {
				return err
			}
			if confirmed >= int64(*event.Capacity) {
				return apperrors.ErrCapacityExceeded.WithMessage(
					fmt.Sprintf("event %q has no seats left (%d confirmed)", event.Title, confirmed))
			}
		}

		booking := models.Booking{
			EventID:            eventID,
			MemberID:           memberID,
			Status:             models.BookingStatusConfirmed,
			AmountPence:        amountPence,
			PaymentMethod:      "stripe",
			PaymentReferenceID: &paymentRef,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		result = ReconciliationResult{Created: true, BookingID: booking.ID}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			// Concurrent duplicate delivery won the insert race. Resolve to
			// the booking it created.
			var existing models.Booking
			lookupErr := s.db.WithContext(ctx).Where("payment_reference_id = ?", paymentRef).First(&existing).Error
			if lookupErr == nil {
				s.log.Info("payment reference settled concurrently",
					zap.String("payment_reference_id", paymentRef),
					zap.String("booking_id", existing.ID),
				)
				return ReconciliationResult{Created: false, BookingID: existing.ID}, nil
			}
		}
		return ReconciliationResult{}, err
	}

	if result.Created {
		s.recordPayment(ctx, memberID, paymentRef, result.BookingID, amountPence)
	}

	return result, nil
}

// recordPayment writes the ledger row for a settled booking. Failures are
// logged and reconciled later; the booking stands either way.
func (s *SettlementService) recordPayment(ctx context.Context, memberID, paymentRef, bookingID string, amountPence int64) {
	paidAt := s.now().UTC()
	payment := models.Payment{
		MemberID:           memberID,
		AmountPence:        amountPence,
		Currency:           "GBP",
		PaymentType:        models.PaymentTypeEventBooking,
		PaymentMethod:      "stripe",
		Status:             models.PaymentStatusPaid,
		PaidAt:             &paidAt,
		PaymentReferenceID: &paymentRef,
		ReferenceID:        bookingID,
		Description:        "Event booking " + bookingID,
	}

	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		s.log.Error("failed to record payment ledger row",
			zap.String("booking_id", bookingID),
			zap.String("payment_reference_id", paymentRef),
			zap.Error(err),
		)
	}
}
