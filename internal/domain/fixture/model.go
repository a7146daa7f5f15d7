package fixture

import "time"

// Fixture pairs two teams within one gameweek. Each side carries its own
// difficulty rating (1 = easiest, 5 = hardest).
type Fixture struct {
	ID             int64
	Gameweek       int
	HomeTeamID     int64
	AwayTeamID     int64
	HomeDifficulty int
	AwayDifficulty int
	KickoffAt      time.Time
}

// InvolvesTeam reports whether the given team plays in this fixture.
func (f Fixture) InvolvesTeam(teamID int64) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

// DifficultyFor returns the difficulty rating from the perspective of the
// given team, together with whether the team plays at home. A team not
// involved in the fixture gets (0, false).
func (f Fixture) DifficultyFor(teamID int64) (difficulty int, home bool) {
	switch teamID {
	case f.HomeTeamID:
		return f.HomeDifficulty, true
	case f.AwayTeamID:
		return f.AwayDifficulty, false
	default:
		return 0, false
	}
}
