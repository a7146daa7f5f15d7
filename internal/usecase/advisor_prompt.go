package usecase

import (
	"fmt"
	"strconv"

	"github.com/valyala/bytebufferpool"

	"github.com/barqyst/fpl-advisor/internal/domain/advisor"
	"github.com/barqyst/fpl-advisor/internal/domain/reference"
	"github.com/barqyst/fpl-advisor/internal/domain/team"
)

const promptFixturesPerPlayer = 3

// renderPrompt builds the grounded system prompt from the synthesized
// context. Recommendations are hard-restricted to the ranked lists: the
// model is instructed to say when a player is absent from them instead of
// inventing numbers.
func renderPrompt(ctx advisor.Context, record *team.Record) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString("You are an expert Fantasy Premier League advisor for the ")
	_, _ = buf.WriteString(ctx.Season)
	_, _ = buf.WriteString(" season.\n")
	_, _ = fmt.Fprintf(buf, "Current gameweek: %d. Next gameweek: %d.\n\n", ctx.CurrentGameweek, ctx.NextGameweek)

	_, _ = buf.WriteString("TOP PLAYERS BY POSITION (the only players you may recommend):\n")
	writeRankedGroup(buf, "Goalkeepers", ctx.TopPlayers.Goalkeepers)
	writeRankedGroup(buf, "Defenders", ctx.TopPlayers.Defenders)
	writeRankedGroup(buf, "Midfielders", ctx.TopPlayers.Midfielders)
	writeRankedGroup(buf, "Forwards", ctx.TopPlayers.Forwards)

	if len(ctx.EasyFixtures) > 0 {
		_, _ = buf.WriteString("\nEASY UPCOMING FIXTURES (difficulty 1-2):\n")
		for _, easy := range ctx.EasyFixtures {
			venue := "away"
			if easy.Home {
				venue = "home"
			}
			_, _ = fmt.Fprintf(buf, "- GW%d: %s vs %s (%s, difficulty %d)\n",
				easy.Gameweek, easy.Team, easy.Opponent, venue, easy.Difficulty)
		}
	}

	if len(ctx.DefensiveRecords) > 0 {
		_, _ = buf.WriteString("\nBEST DEFENSIVE RECORDS:\n")
		limit := len(ctx.DefensiveRecords)
		if limit > 8 {
			limit = 8
		}
		for _, rec := range ctx.DefensiveRecords[:limit] {
			_, _ = fmt.Fprintf(buf, "- %s: %d conceded, %d clean sheets\n",
				rec.TeamName, rec.GoalsConceded, rec.CleanSheets)
		}
	}

	if len(ctx.UnavailablePlayers) > 0 {
		_, _ = buf.WriteString("\nINJURED OR UNAVAILABLE PLAYERS:\n")
		for _, p := range ctx.UnavailablePlayers {
			_, _ = fmt.Fprintf(buf, "- %s (%s): %s - %s\n", p.PlayerName, p.Team, p.Status, p.News)
		}
	}

	if record != nil {
		_, _ = buf.WriteString("\nUSER'S CURRENT TEAM:\n")
		_, _ = fmt.Fprintf(buf, "- Name: %s\n", record.Name)
		_, _ = fmt.Fprintf(buf, "- Bank: %.1f, squad value: %.1f\n", record.BankValue, record.TeamValue)
		_, _ = fmt.Fprintf(buf, "- Total points: %d, overall rank: %d\n", record.TotalPoints, record.OverallRank)
		_, _ = fmt.Fprintf(buf, "- Free transfers: %d\n", record.FreeTransfers)
		if record.SquadDegraded {
			_, _ = buf.WriteString("- Squad list unavailable for the current gameweek\n")
		}
	}

	for _, fetch := range ctx.PeriodFetches {
		if fetch.Degraded {
			_, _ = fmt.Fprintf(buf, "\nNote: fixture data for gameweek %d is unavailable.\n", fetch.Gameweek)
		}
	}

	_, _ = buf.WriteString("\nRULES:\n")
	_, _ = buf.WriteString("1. Only recommend players from the TOP PLAYERS lists above.\n")
	_, _ = buf.WriteString("2. If asked about a player not in those lists, say you do not have current data for them. Never invent statistics.\n")
	_, _ = buf.WriteString("3. Use the fixture difficulty data when weighing transfers and captaincy.\n")
	_, _ = buf.WriteString("4. Flag any recommended player whose availability is not Available.\n")
	_, _ = buf.WriteString("5. Keep answers concise and specific to the data above.\n")

	return buf.String()
}

func writeRankedGroup(buf *bytebufferpool.ByteBuffer, title string, players []advisor.RankedPlayer) {
	if len(players) == 0 {
		return
	}
	_, _ = buf.WriteString("\n")
	_, _ = buf.WriteString(title)
	_, _ = buf.WriteString(":\n")
	for _, player := range players {
		_, _ = fmt.Fprintf(buf, "- %s (%s) £%.1fm, %d pts, form %.1f",
			player.WebName, player.TeamShortName, float64(player.NowCost)/10.0, player.TotalPoints, player.Form)
		switch player.Position {
		case reference.PositionGoalkeeper:
			_, _ = fmt.Fprintf(buf, ", %d clean sheets, %d saves", player.CleanSheets, player.Saves)
		case reference.PositionDefender:
			_, _ = fmt.Fprintf(buf, ", %d clean sheets, %d goals", player.CleanSheets, player.GoalsScored)
		default:
			_, _ = fmt.Fprintf(buf, ", %d goals, %d assists", player.GoalsScored, player.Assists)
		}
		if player.SelectedByPercent != "" {
			_, _ = buf.WriteString(", owned " + player.SelectedByPercent + "%")
		}
		if len(player.UpcomingFixtures) > 0 {
			_, _ = buf.WriteString(". Next: ")
			limit := len(player.UpcomingFixtures)
			if limit > promptFixturesPerPlayer {
				limit = promptFixturesPerPlayer
			}
			for i, fx := range player.UpcomingFixtures[:limit] {
				if i > 0 {
					_, _ = buf.WriteString(", ")
				}
				venue := "A"
				if fx.Home {
					venue = "H"
				}
				_, _ = buf.WriteString(fx.Opponent + " (" + venue + strconv.Itoa(fx.Difficulty) + ")")
			}
		}
		_, _ = buf.WriteString("\n")
	}
}

// fallbackPrompt grounds nothing but still frames the assistant role. Used
// when context synthesis fails outright.
func fallbackPrompt(season string) string {
	return "You are an expert Fantasy Premier League advisor for the " + season + " season. " +
		"Live player and fixture data is temporarily unavailable, so answer from general FPL strategy only " +
		"and tell the user that you cannot cite current statistics right now. Never invent player data."
}
