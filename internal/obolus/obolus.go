package obolus

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/core-coin/obolus/internal/config"
	"github.com/core-coin/obolus/internal/metrics"
	"github.com/core-coin/obolus/internal/models"
	"github.com/core-coin/obolus/pkg/logger"
)

// Obolus is the main struct for the Obolus application
// It contains all the necessary components to run the application
// and serves all business logic. It keeps no state between calls:
// balances live in the repository only.
type Obolus struct {
	logger *logger.Logger
	config *config.Config

	repo        models.Repository
	notificator models.NotificationService

	now          func() time.Time
	newReference func() string
}

var _ models.ObolusI = (*Obolus)(nil)

// NewObolus creates a new Obolus instance
func NewObolus(
	repo models.Repository,
	notificator models.NotificationService,
	logger *logger.Logger,
	config *config.Config,
) *Obolus {
	return &Obolus{
		repo:         repo,
		notificator:  notificator,
		logger:       logger,
		config:       config,
		now:          time.Now,
		newReference: uuid.NewString,
	}
}

// Start runs the ledger audit sweep every ReconcileInterval until ctx is done.
func (o *Obolus) Start(ctx context.Context) {
	ticker := time.NewTicker(o.config.ReconcileInterval)
	defer ticker.Stop()

	o.runAudit(ctx)
	for {
		select {
		case <-ctx.Done():
			o.logger.Infow("Audit sweep stopped")
			return
		case <-ticker.C:
			o.runAudit(ctx)
		}
	}
}

func (o *Obolus) runAudit(ctx context.Context) {
	report, err := o.Audit(ctx)
	if err != nil {
		o.logger.Errorw("Ledger audit failed", "error", err)
		return
	}
	if report.Balanced() {
		metrics.LedgerBalanced.Set(1)
		o.logger.Debugw("Ledger audit balanced", "totals", report.Totals)
		return
	}
	metrics.LedgerBalanced.Set(0)
	o.logger.Errorw("Ledger audit found discrepancies",
		"discrepancies", strings.Join(report.Discrepancies, "; "),
		"totals", report.Totals)
}

// storeContext bounds a single ledger write.
func (o *Obolus) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.config.StoreTimeout)
}

// recoveryContext is used to look up the outcome of a write that timed out.
// It survives cancellation of the request context.
func (o *Obolus) recoveryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.config.StoreTimeout)
}
