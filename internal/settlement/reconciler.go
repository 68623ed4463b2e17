package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/mcoot/minesgame/internal/model"
)

// DefaultReconcileSchedule runs the credit failure report every ten minutes
const DefaultReconcileSchedule = "@every 10m"

// Reconciler periodically reports payouts the ledger never accepted
type Reconciler struct {
	sink   Sink
	cron   *cron.Cron
	logger *slog.Logger
}

// NewReconciler schedules the report on the given cron spec
func NewReconciler(sink Sink, schedule string, logger *slog.Logger) (*Reconciler, error) {
	r := &Reconciler{
		sink:   sink,
		cron:   cron.New(),
		logger: logger.With(slog.String("component", "reconciler")),
	}
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	if _, err := r.cron.AddFunc(schedule, func() { _, _ = r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule reconcile job %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins running the schedule in the background
func (r *Reconciler) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce logs every unresolved credit failure and returns how many there are
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.sink.PendingCreditFailures(ctx)
	if err != nil {
		r.logger.Error("failed to list credit failures", slog.String("error", err.Error()))
		return 0, err
	}
	if len(pending) == 0 {
		r.logger.Debug("no unresolved credit failures")
		return 0, nil
	}

	var total model.Money
	for _, f := range pending {
		total += f.Amount
		r.logger.Warn("unresolved credit failure",
			slog.String("round_id", string(f.RoundID)),
			slog.String("bet_id", f.BetID),
			slog.String("operator_id", f.OperatorID),
			slog.String("user_id", f.UserID),
			slog.String("amount", f.Amount.String()),
			slog.String("txn_id", f.TxnID),
		)
	}
	r.logger.Warn("credit failures awaiting reconciliation",
		slog.Int("count", len(pending)),
		slog.String("total", total.String()),
	)
	return len(pending), nil
}
