package jobs

import (
	"context"
	"time"

	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/services"

	"gorm.io/gorm"
)

// InitializeJobs initializes and starts all background jobs
func InitializeJobs(
	ctx context.Context,
	db *gorm.DB,
	engine *services.AllocationService,
	waitlist *services.WaitlistService,
	checker services.MembershipChecker,
	m *metrics.MetricsRegistry,
	auditInterval time.Duration,
) *MembershipAuditJob {
	audit := NewMembershipAuditJob(db, engine, waitlist, checker, m)

	go audit.RunScheduled(ctx, auditInterval)

	return audit
}
