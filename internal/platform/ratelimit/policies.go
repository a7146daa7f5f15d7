package ratelimit

import "time"

// Named policies shared by the HTTP layer. The expensive tier protects
// completion calls; fplImport protects upstream-heavy import endpoints.
var (
	PolicyAPI       = Config{Name: "api", Max: 100, Window: time.Minute}
	PolicyReadOnly  = Config{Name: "read_only", Max: 200, Window: time.Minute}
	PolicyExpensive = Config{Name: "expensive", Max: 10, Window: time.Hour}
	PolicyImport    = Config{Name: "fpl_import", Max: 20, Window: time.Hour}
)
