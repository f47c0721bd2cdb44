package match

import "errors"

var ErrMalformedRecord = errors.New("malformed match record")

// Record is one match object as returned by the provider. It is never mutated.
type Record map[string]any

// Row is a flattened record keyed by dot-joined column names.
type Row map[string]any

// Table is the projected result of a batch of records. Columns is the union of
// row keys in natural order; a row lacking a column renders as an empty cell.
type Table struct {
	Columns []string
	Rows    []Row
}

const (
	FieldGames     = "games"
	FieldOpponents = "opponents"
	FieldResults   = "results"

	fieldOpponentInner = "opponent"

	GamePrefix     = "game"
	OpponentPrefix = "opponent"
	ResultPrefix   = "result"

	Separator = "."
)

// DroppedColumns are removed from every flattened row.
var DroppedColumns = []string{
	"opponents",
	"modified_at",
	"slug",
	"streams_list",
	"live.opens_at",
	"live.supported",
	"live.url",
	"videogame_title.slug",
	"videogame.slug",
	"winner.image_url",
	"winner.modified_at",
	"winner.slug",
	"serie.modified_at",
	"serie.slug",
	"tournament.detailed_stats",
	"tournament.live_supported",
	"tournament.modified_at",
	"tournament.slug",
	"league.image_url",
	"league.modified_at",
	"league.slug",
	"league.url",
	"detailed_stats",
	"opponent_0.image_url",
	"opponent_0.modified_at",
	"opponent_0.slug",
	"opponent_1.image_url",
	"opponent_1.modified_at",
	"opponent_1.slug",
	"games",
	"results",
}

var droppedSet = func() map[string]struct{} {
	out := make(map[string]struct{}, len(DroppedColumns))
	for _, name := range DroppedColumns {
		out[name] = struct{}{}
	}
	return out
}()

func IsDropped(column string) bool {
	_, ok := droppedSet[column]
	return ok
}
