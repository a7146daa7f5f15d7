package advisor

import "time"

// Message is one turn of a chat-completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UpcomingFixture is a single future match from one team's perspective.
type UpcomingFixture struct {
	Gameweek   int
	Opponent   string
	Home       bool
	Difficulty int
}

// RankedPlayer is a reference player enriched for prompt grounding.
type RankedPlayer struct {
	PlayerID          int64
	WebName           string
	Position          int
	TeamName          string
	TeamShortName     string
	NowCost           int
	TotalPoints       int
	Form              float64
	PointsPerGame     float64
	GoalsScored       int
	Assists           int
	CleanSheets       int
	Saves             int
	SelectedByPercent string
	Availability      string
	News              string
	UpcomingFixtures  []UpcomingFixture
}

// FixtureRow is a fixture rendered with resolved team names.
type FixtureRow struct {
	Gameweek       int
	HomeTeam       string
	AwayTeam       string
	HomeTeamID     int64
	AwayTeamID     int64
	HomeDifficulty int
	AwayDifficulty int
	KickoffAt      time.Time
}

// EasyFixture is one side of a fixture whose difficulty is low enough to be
// an attractive target. Both home and away perspectives appear as separate
// rows.
type EasyFixture struct {
	Gameweek   int
	Team       string
	TeamID     int64
	Opponent   string
	Difficulty int
	Home       bool
}

// DefensiveRecord aggregates one team's defensive signals. Clean sheets are
// recomputed from the team's goalkeepers and defenders rather than trusted
// from a provider aggregate.
type DefensiveRecord struct {
	TeamID        int64
	TeamName      string
	GoalsConceded int
	CleanSheets   int
	Strength      int
}

// UnavailablePlayer is a player flagged by the provider with non-available
// status and accompanying news text.
type UnavailablePlayer struct {
	PlayerName string
	Team       string
	Status     string
	News       string
}

// PeriodFetch records the outcome of one gameweek's fixtures fetch. Failed
// periods are omitted from the context rather than aborting synthesis.
type PeriodFetch struct {
	Gameweek int
	Degraded bool
	Reason   string
}

// RankedLists holds the top players per position category, each capped at
// five entries. The downstream prompt must restrict recommendations to these
// lists.
type RankedLists struct {
	Goalkeepers []RankedPlayer
	Defenders   []RankedPlayer
	Midfielders []RankedPlayer
	Forwards    []RankedPlayer
}

// Context is the synthesized, fixture-enriched dataset used to ground the
// completion prompt. It is rebuilt per request and never cached.
type Context struct {
	CurrentGameweek    int
	NextGameweek       int
	Season             string
	TopPlayers         RankedLists
	AllFixtures        []FixtureRow
	EasyFixtures       []EasyFixture
	DefensiveRecords   []DefensiveRecord
	UnavailablePlayers []UnavailablePlayer
	PeriodFetches      []PeriodFetch
}
