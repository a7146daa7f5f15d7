package postgres

import "time"

type userTeamTableModel struct {
	ID            int64     `db:"id"`
	UserID        string    `db:"user_id"`
	FPLTeamID     int64     `db:"fpl_team_id"`
	TeamName      string    `db:"team_name"`
	SquadPlayers  []byte    `db:"squad_players"`
	BankValue     float64   `db:"bank_value"`
	TeamValue     float64   `db:"team_value"`
	TotalPoints   int       `db:"total_points"`
	OverallRank   int       `db:"overall_rank"`
	FreeTransfers int       `db:"free_transfers"`
	SquadDegraded bool      `db:"squad_degraded"`
	SyncedAt      time.Time `db:"synced_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
