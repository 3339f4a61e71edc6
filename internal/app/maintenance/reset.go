package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
	"github.com/clubworks/atrium/pkg/logger"
)

const (
	defaultQuotaSpec   = "@monthly"
	defaultBookingSpec = "@daily"

	defaultPendingBookingMaxAge = 48 * time.Hour
)

// Resetter coordinates background maintenance: zeroing the monthly
// introduction counters and expiring pending bookings whose payment never
// completed.
type Resetter struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	quotaSchedule   string
	bookingSchedule string
	pendingMaxAge   time.Duration
}

// Option customises the Resetter.
type Option func(*Resetter)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Resetter) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for age comparisons.
func WithNow(now func() time.Time) Option {
	return func(r *Resetter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithQuotaSchedule overrides the cron specification for the quota reset.
func WithQuotaSchedule(spec string) Option {
	return func(r *Resetter) {
		if spec != "" {
			r.quotaSchedule = spec
		}
	}
}

// WithBookingSchedule overrides the cron specification for pending booking expiry.
func WithBookingSchedule(spec string) Option {
	return func(r *Resetter) {
		if spec != "" {
			r.bookingSchedule = spec
		}
	}
}

// WithPendingBookingMaxAge adjusts how long a pending booking may wait for its
// payment before being cancelled.
func WithPendingBookingMaxAge(age time.Duration) Option {
	return func(r *Resetter) {
		if age > 0 {
			r.pendingMaxAge = age
		}
	}
}

// NewResetter constructs a Resetter with sensible defaults.
func NewResetter(db *gorm.DB, opts ...Option) *Resetter {
	r := &Resetter{
		db:              db,
		now:             time.Now,
		quotaSchedule:   defaultQuotaSpec,
		bookingSchedule: defaultBookingSpec,
		pendingMaxAge:   defaultPendingBookingMaxAge,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return r
}

// Start registers the maintenance jobs with the cron scheduler and launches it.
func (r *Resetter) Start() error {
	if r.db == nil {
		return nil
	}

	if _, err := r.cron.AddFunc(r.quotaSchedule, func() {
		ctx := context.Background()
		if _, err := ResetMonthlyQuotas(ctx, r.db); err != nil {
			r.log.Warn("quota reset failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := r.cron.AddFunc(r.bookingSchedule, func() {
		ctx := context.Background()
		if _, err := ExpirePendingBookings(ctx, r.db, r.now().Add(-r.pendingMaxAge)); err != nil {
			r.log.Warn("pending booking expiry failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (r *Resetter) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes all maintenance routines sequentially. Primarily used in
// tests and during graceful shutdown.
func (r *Resetter) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.db == nil {
		return nil
	}

	var errs error

	if _, err := ResetMonthlyQuotas(ctx, r.db); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := ExpirePendingBookings(ctx, r.db, r.now().Add(-r.pendingMaxAge)); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// ResetMonthlyQuotas zeroes the introduction counter for every member whose
// counter is non-zero. Returns the number of members reset.
func ResetMonthlyQuotas(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("quota reset: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.Member{}).
		Where("intros_used_this_month <> 0").
		UpdateColumn("intros_used_this_month", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("quota reset: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ExpirePendingBookings cancels pending bookings created before the cutoff.
// Confirmed bookings are never touched; settlement is the only path that
// confirms a seat.
func ExpirePendingBookings(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("booking expiry: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ? AND created_at < ?", models.BookingStatusPending, cutoff).
		UpdateColumn("status", models.BookingStatusCancelled)
	if result.Error != nil {
		return 0, fmt.Errorf("booking expiry: %w", result.Error)
	}
	return result.RowsAffected, nil
}
