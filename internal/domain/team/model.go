package team

import "time"

// DefaultFreeTransfers is a deliberate placeholder: deriving the real value
// requires walking the entry's transfer history, which is not implemented.
const DefaultFreeTransfers = 1

// Record is the internal shape persisted for an imported team. Monetary
// fields are whole currency units (the provider reports tenths).
type Record struct {
	FPLTeamID     int64
	Name          string
	SquadPlayers  []int64
	BankValue     float64
	TeamValue     float64
	TotalPoints   int
	OverallRank   int
	FreeTransfers int
	SquadDegraded bool
	SyncedAt      time.Time
}

// SquadResult carries the outcome of the best-effort picks fetch: either the
// squad player ids, or an explicit degraded marker with the reason the picks
// were unavailable.
type SquadResult struct {
	PlayerIDs []int64
	Degraded  bool
	Reason    string
}
