package reference

import "time"

// Position categories used by the upstream statistics provider.
const (
	PositionGoalkeeper = 1
	PositionDefender   = 2
	PositionMidfielder = 3
	PositionForward    = 4
)

// Availability status codes as reported by the provider.
const (
	StatusAvailable   = "a"
	StatusDoubtful    = "d"
	StatusInjured     = "i"
	StatusSuspended   = "s"
	StatusUnavailable = "u"
)

// Player is one tracked competitor as of a snapshot. Numeric form/ppg values
// arrive from the provider as strings and are parsed at the client boundary.
type Player struct {
	ID                int64
	TeamID            int64
	Position          int
	WebName           string
	FirstName         string
	SecondName        string
	NowCost           int
	TotalPoints       int
	EventPoints       int
	Minutes           int
	GoalsScored       int
	Assists           int
	CleanSheets       int
	GoalsConceded     int
	Saves             int
	Bonus             int
	Form              float64
	PointsPerGame     float64
	SelectedByPercent string
	Status            string
	News              string
	ChanceThisRound   *int
	ChanceNextRound   *int
}

// AvailabilityLabel maps the provider status code to a human-readable label.
func (p Player) AvailabilityLabel() string {
	switch p.Status {
	case StatusAvailable:
		return "Available"
	case StatusDoubtful:
		return "Doubtful"
	case StatusInjured:
		return "Injured"
	default:
		return "Unavailable"
	}
}

type Team struct {
	ID            int64
	Name          string
	ShortName     string
	Strength      int
	Position      int
	Played        int
	GoalsScored   int
	GoalsConceded int
	Points        int
}

type Gameweek struct {
	ID           int
	Name         string
	DeadlineTime time.Time
	IsPrevious   bool
	IsCurrent    bool
	IsNext       bool
	Finished     bool
}

// Snapshot is the full reference dataset as of FetchedAt. It is replaced
// wholesale on refresh and must never be mutated after construction.
type Snapshot struct {
	Players   []Player
	Teams     []Team
	Gameweeks []Gameweek
	FetchedAt time.Time
}

// TeamByID returns the team with the given id, or false when absent.
func (s Snapshot) TeamByID(id int64) (Team, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// CurrentGameweek returns the gameweek flagged as current, or false when the
// provider has not marked one (pre-season, between seasons).
func (s Snapshot) CurrentGameweek() (Gameweek, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsCurrent {
			return gw, true
		}
	}
	return Gameweek{}, false
}

// NextGameweek returns the gameweek flagged as next, or false when absent.
func (s Snapshot) NextGameweek() (Gameweek, bool) {
	for _, gw := range s.Gameweeks {
		if gw.IsNext {
			return gw, true
		}
	}
	return Gameweek{}, false
}
