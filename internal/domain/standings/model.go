package standings

// Row is one participant entry in a classic-league table. Rows are collected
// in the order the provider returns them; ordering by rank is trusted from
// upstream and never recomputed locally.
type Row struct {
	EntryID    int64
	EntryName  string
	PlayerName string
	Rank       int
	LastRank   int
	RankSort   int
	Total      int
	EventTotal int
}

// League is the metadata block attached to a standings page.
type League struct {
	ID        int64
	Name      string
	ShortName string
}

// Table is a fully collected league: metadata from the first page plus every
// row from every fetched page, in page order. Complete is false when the
// walk stopped at the page cap with more pages still upstream.
type Table struct {
	League   League
	Rows     []Row
	Pages    int
	Complete bool
}
