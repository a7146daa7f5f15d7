package fplapi

// Wire shapes for the Fantasy Premier League public API. Numeric stats that
// the provider serializes as strings (form, points_per_game) are parsed into
// floats when mapped to domain types.

type bootstrapEnvelope struct {
	Elements []elementPayload  `json:"elements"`
	Teams    []teamPayload     `json:"teams"`
	Events   []gameweekPayload `json:"events"`
}

type elementPayload struct {
	ID                    int64  `json:"id"`
	Team                  int64  `json:"team"`
	ElementType           int    `json:"element_type"`
	WebName               string `json:"web_name"`
	FirstName             string `json:"first_name"`
	SecondName            string `json:"second_name"`
	NowCost               int    `json:"now_cost"`
	TotalPoints           int    `json:"total_points"`
	EventPoints           int    `json:"event_points"`
	Minutes               int    `json:"minutes"`
	GoalsScored           int    `json:"goals_scored"`
	Assists               int    `json:"assists"`
	CleanSheets           int    `json:"clean_sheets"`
	GoalsConceded         int    `json:"goals_conceded"`
	Saves                 int    `json:"saves"`
	Bonus                 int    `json:"bonus"`
	Form                  string `json:"form"`
	PointsPerGame         string `json:"points_per_game"`
	SelectedByPercent     string `json:"selected_by_percent"`
	Status                string `json:"status"`
	News                  string `json:"news"`
	ChanceOfPlayingThis   *int   `json:"chance_of_playing_this_round"`
	ChanceOfPlayingNext   *int   `json:"chance_of_playing_next_round"`
}

type teamPayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ShortName     string `json:"short_name"`
	Strength      int    `json:"strength"`
	Position      int    `json:"position"`
	Played        int    `json:"played"`
	GoalsScored   int    `json:"goal_scored"`
	GoalsConceded int    `json:"goal_conceded"`
	Points        int    `json:"points"`
}

type gameweekPayload struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DeadlineTime string `json:"deadline_time"`
	IsPrevious   bool   `json:"is_previous"`
	IsCurrent    bool   `json:"is_current"`
	IsNext       bool   `json:"is_next"`
	Finished     bool   `json:"finished"`
}

type entryEnvelope struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	PlayerFirstName      string `json:"player_first_name"`
	PlayerLastName       string `json:"player_last_name"`
	SummaryOverallPoints int    `json:"summary_overall_points"`
	SummaryOverallRank   int    `json:"summary_overall_rank"`
	SummaryEventPoints   int    `json:"summary_event_points"`
	CurrentEvent         int    `json:"current_event"`
	LastDeadlineBank     int    `json:"last_deadline_bank"`
	LastDeadlineValue    int    `json:"last_deadline_value"`
}

type picksEnvelope struct {
	ActiveChip   *string       `json:"active_chip"`
	EntryHistory entryHistory  `json:"entry_history"`
	Picks        []pickPayload `json:"picks"`
}

type entryHistory struct {
	Event          int `json:"event"`
	Points         int `json:"points"`
	TotalPoints    int `json:"total_points"`
	OverallRank    int `json:"overall_rank"`
	Bank           int `json:"bank"`
	Value          int `json:"value"`
	EventTransfers int `json:"event_transfers"`
}

type pickPayload struct {
	Element       int64 `json:"element"`
	Position      int   `json:"position"`
	Multiplier    int   `json:"multiplier"`
	IsCaptain     bool  `json:"is_captain"`
	IsViceCaptain bool  `json:"is_vice_captain"`
}

type standingsEnvelope struct {
	League    leaguePayload  `json:"league"`
	Standings standingsBlock `json:"standings"`
}

type leaguePayload struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type standingsBlock struct {
	HasNext bool                 `json:"has_next"`
	Page    int                  `json:"page"`
	Results []standingRowPayload `json:"results"`
}

type standingRowPayload struct {
	Entry      int64  `json:"entry"`
	EntryName  string `json:"entry_name"`
	PlayerName string `json:"player_name"`
	Rank       int    `json:"rank"`
	LastRank   int    `json:"last_rank"`
	RankSort   int    `json:"rank_sort"`
	Total      int    `json:"total"`
	EventTotal int    `json:"event_total"`
}

type fixturePayload struct {
	ID              int64  `json:"id"`
	Event           int    `json:"event"`
	TeamH           int64  `json:"team_h"`
	TeamA           int64  `json:"team_a"`
	TeamHDifficulty int    `json:"team_h_difficulty"`
	TeamADifficulty int    `json:"team_a_difficulty"`
	KickoffTime     string `json:"kickoff_time"`
}
