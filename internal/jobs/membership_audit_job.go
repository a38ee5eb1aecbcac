package jobs

import (
	"context"
	"fmt"
	"time"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/services"

	"gorm.io/gorm"
)

// AuditReport summarises one audit run
type AuditReport struct {
	Checked      int
	Flagged      int
	Inconclusive int
	Expired      int64
}

// MembershipAuditJob re-checks channel membership of everyone holding an
// active key. Holders found outside a required channel have their sales
// flagged and lose their verified status.
type MembershipAuditJob struct {
	engine   *services.AllocationService
	checker  services.MembershipChecker
	channels *repositories.ChannelRepository
	sales    *repositories.SaleRepository
	users    *repositories.UserRepository
	waitlist *services.WaitlistService
	runs     *repositories.JobRunRepo
	metrics  *metrics.MetricsRegistry
	now      func() time.Time
}

func NewMembershipAuditJob(
	db *gorm.DB,
	engine *services.AllocationService,
	waitlist *services.WaitlistService,
	checker services.MembershipChecker,
	m *metrics.MetricsRegistry,
) *MembershipAuditJob {
	return &MembershipAuditJob{
		engine:   engine,
		checker:  checker,
		channels: repositories.NewChannelRepository(db),
		sales:    repositories.NewSaleRepository(db),
		users:    repositories.NewUserRepository(db),
		waitlist: waitlist,
		runs:     repositories.NewJobRunRepo(db),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one audit and records it in job_runs
func (j *MembershipAuditJob) Run(ctx context.Context) (*AuditReport, error) {
	start := j.now()
	logging.Info("Membership audit started")

	run, err := j.runs.Start(ctx, constants.JobMembershipAudit, start)
	if err != nil {
		return nil, fmt.Errorf("failed to record audit start: %w", err)
	}

	report, runErr := j.audit(ctx)

	status := repositories.JobStatusSucceeded
	if runErr != nil {
		status = repositories.JobStatusFailed
	}
	if err := j.runs.Finish(ctx, run, status, report.Checked, report.Flagged, j.now()); err != nil {
		logging.Warn("Failed to record audit finish", "run_id", run.ID, "error", err)
	}

	if j.metrics != nil {
		j.metrics.JobDuration.WithLabelValues(constants.JobMembershipAudit).Observe(time.Since(start).Seconds())
	}

	if runErr != nil {
		logging.Error("Membership audit failed", "error", runErr, "checked", report.Checked)
		return report, runErr
	}

	logging.Info("Membership audit completed",
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
		"checked", report.Checked,
		"flagged", report.Flagged,
		"inconclusive", report.Inconclusive,
		"expired", report.Expired,
	)
	return report, nil
}

func (j *MembershipAuditJob) audit(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}

	expired, err := j.sales.DeactivateExpired(ctx, j.now())
	if err != nil {
		return report, err
	}
	report.Expired = expired

	channels, err := j.channels.List(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list channels: %w", err)
	}
	if len(channels) == 0 {
		return report, nil
	}

	holders, err := j.sales.ActiveHolderIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, userID := range holders {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++

		left, unknown := false, false
		for _, status := range services.CheckAll(ctx, j.checker, channels, userID) {
			switch status {
			case constants.MembershipNotMember:
				left = true
			case constants.MembershipUnknown:
				unknown = true
			}
		}

		if !left {
			if unknown {
				report.Inconclusive++
			}
			continue
		}

		if err := j.flag(ctx, userID); err != nil {
			return report, err
		}
		report.Flagged++
	}
	return report, nil
}

// flag marks the user's sales and revokes verification. Runs under the engine
// lock so a drain in progress never hands this user a key mid-update.
func (j *MembershipAuditJob) flag(ctx context.Context, userID int64) error {
	return j.engine.Exclusive(ctx, "audit flag", func(tx *gorm.DB) error {
		if _, err := j.sales.WithTx(tx).MarkLeftChannel(ctx, userID); err != nil {
			return err
		}
		if err := j.users.WithTx(tx).SetVerified(ctx, userID, false); err != nil {
			return err
		}
		if _, err := j.waitlist.WithTx(tx).Remove(ctx, userID); err != nil {
			return err
		}
		logging.Info("Key holder left a required channel", "user_id", userID)
		return nil
	})
}

// RunScheduled audits on every tick. The first run is skipped when a
// successful one finished within the last interval.
func (j *MembershipAuditJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if j.shouldRunInitial(ctx, interval) {
		if _, err := j.Run(ctx); err != nil {
			logging.Warn("Initial membership audit failed", "error", err)
		}
	}

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				logging.Warn("Scheduled membership audit failed", "error", err)
			}
		case <-ctx.Done():
			logging.Info("Membership audit scheduler stopped")
			return
		}
	}
}

func (j *MembershipAuditJob) shouldRunInitial(ctx context.Context, interval time.Duration) bool {
	last, err := j.runs.GetLastSuccessful(ctx, constants.JobMembershipAudit)
	if err != nil {
		logging.Warn("Failed to read audit history", "error", err)
		return true
	}
	if last == nil {
		return true
	}
	if since := j.now().Sub(last.StartedAt); since < interval {
		logging.Info("Skipping initial membership audit", "last_run_ago", since.Truncate(time.Second).String())
		return false
	}
	return true
}
