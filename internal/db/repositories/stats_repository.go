package repositories

import (
	"context"
	"fmt"

	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/models/entities"

	"github.com/jmoiron/sqlx"
)

// StatsRepo serves the read-only listings and counters
type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db}
}

func (r *StatsRepo) Counts(ctx context.Context) (*entities.DistributionStats, error) {
	var stats entities.DistributionStats

	query := r.db.Rebind(constants.CountStats)
	err := r.db.QueryRowxContext(ctx, query, true, true, true, false).StructScan(&stats)
	if err != nil {
		return nil, fmt.Errorf("failed to count stats: %w", err)
	}
	return &stats, nil
}

func (r *StatsRepo) RecentClaims(ctx context.Context, limit int) ([]entities.RecentClaim, error) {
	claims := []entities.RecentClaim{}
	if err := r.db.SelectContext(ctx, &claims, r.db.Rebind(constants.RecentClaims), limit); err != nil {
		return nil, fmt.Errorf("failed to list recent claims: %w", err)
	}
	return claims, nil
}

func (r *StatsRepo) UsersPage(ctx context.Context, page entities.Page) ([]entities.UserRow, error) {
	users := []entities.UserRow{}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(constants.ListUsersPage), page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// WaitlistPage lists queued users in FIFO order with their absolute positions
func (r *StatsRepo) WaitlistPage(ctx context.Context, page entities.Page) ([]entities.WaitlistRow, error) {
	rows := []entities.WaitlistRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(constants.ListWaitlistPage), page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	for i := range rows {
		rows[i].Position = page.Offset + i + 1
	}
	return rows, nil
}

func (r *StatsRepo) LeftUsersPage(ctx context.Context, page entities.Page) ([]entities.LeftUserRow, error) {
	rows := []entities.LeftUserRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(constants.ListLeftUsers), true, page.Limit, page.Offset); err != nil {
		return nil, fmt.Errorf("failed to list users who left: %w", err)
	}
	return rows, nil
}

func (r *StatsRepo) UserHistory(ctx context.Context, userID int64) ([]entities.SaleHistoryRow, error) {
	rows := []entities.SaleHistoryRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(constants.UserHistory), userID); err != nil {
		return nil, fmt.Errorf("failed to load history of %d: %w", userID, err)
	}
	return rows, nil
}

// Ping checks the read pool
func (r *StatsRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
