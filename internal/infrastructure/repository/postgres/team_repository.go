package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/barqyst/fpl-advisor/internal/domain/team"
	qb "github.com/barqyst/fpl-advisor/internal/platform/querybuilder"
)

// TeamRepository persists imported team records, one row per user.
type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Upsert(ctx context.Context, userID string, record team.Record) error {
	squad, err := sonic.Marshal(record.SquadPlayers)
	if err != nil {
		return fmt.Errorf("encode squad players: %w", err)
	}

	now := time.Now().UTC()
	query, args, err := qb.InsertInto("user_teams").
		Columns("user_id", "fpl_team_id", "team_name", "squad_players",
			"bank_value", "team_value", "total_points", "overall_rank",
			"free_transfers", "squad_degraded", "synced_at", "updated_at").
		Values(userID, record.FPLTeamID, record.Name, squad,
			record.BankValue, record.TeamValue, record.TotalPoints, record.OverallRank,
			record.FreeTransfers, record.SquadDegraded, record.SyncedAt, now).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			fpl_team_id = EXCLUDED.fpl_team_id,
			team_name = EXCLUDED.team_name,
			squad_players = EXCLUDED.squad_players,
			bank_value = EXCLUDED.bank_value,
			team_value = EXCLUDED.team_value,
			total_points = EXCLUDED.total_points,
			overall_rank = EXCLUDED.overall_rank,
			free_transfers = EXCLUDED.free_transfers,
			squad_degraded = EXCLUDED.squad_degraded,
			synced_at = EXCLUDED.synced_at,
			updated_at = EXCLUDED.updated_at`).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert user team query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user team: %w", err)
	}
	return nil
}

func (r *TeamRepository) GetLatestByUser(ctx context.Context, userID string) (team.Record, bool, error) {
	query, args, err := qb.Select("*").From("user_teams").
		Where(qb.Eq("user_id", userID)).
		OrderBy("synced_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return team.Record{}, false, fmt.Errorf("build select user team query: %w", err)
	}

	var row userTeamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Record{}, false, nil
		}
		return team.Record{}, false, fmt.Errorf("select user team: %w", err)
	}

	record, err := mapUserTeamRow(row)
	if err != nil {
		return team.Record{}, false, err
	}
	return record, true, nil
}

func (r *TeamRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("user_id").From("user_teams").
		OrderBy("user_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list user ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func mapUserTeamRow(row userTeamTableModel) (team.Record, error) {
	var squad []int64
	if len(row.SquadPlayers) > 0 {
		if err := sonic.Unmarshal(row.SquadPlayers, &squad); err != nil {
			return team.Record{}, fmt.Errorf("decode squad players: %w", err)
		}
	}
	return team.Record{
		FPLTeamID:     row.FPLTeamID,
		Name:          row.TeamName,
		SquadPlayers:  squad,
		BankValue:     row.BankValue,
		TeamValue:     row.TeamValue,
		TotalPoints:   row.TotalPoints,
		OverallRank:   row.OverallRank,
		FreeTransfers: row.FreeTransfers,
		SquadDegraded: row.SquadDegraded,
		SyncedAt:      row.SyncedAt,
	}, nil
}
