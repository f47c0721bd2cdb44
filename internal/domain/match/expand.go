package match

import (
	"fmt"
	"strconv"
)

// Expand returns a copy of rec with one top-level field per element of the
// games, opponents and results lists: game_<i>, opponent_<i>, result_<i>.
// opponent_<i> holds the inner "opponent" value of the wrapping element.
// A missing or null list adds nothing. The source lists stay on the copy.
func Expand(rec Record) (Record, error) {
	games, err := listField(rec, FieldGames)
	if err != nil {
		return nil, err
	}
	opponents, err := listField(rec, FieldOpponents)
	if err != nil {
		return nil, err
	}
	results, err := listField(rec, FieldResults)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(rec)+len(games)+len(opponents)+len(results))
	for key, value := range rec {
		out[key] = value
	}

	for i, game := range games {
		out[IndexedKey(GamePrefix, i)] = game
	}
	for i, item := range opponents {
		wrapper, ok := asObject(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T, want object", ErrMalformedRecord, FieldOpponents, i, item)
		}
		out[IndexedKey(OpponentPrefix, i)] = wrapper[fieldOpponentInner]
	}
	for i, result := range results {
		out[IndexedKey(ResultPrefix, i)] = result
	}

	return out, nil
}

func IndexedKey(prefix string, index int) string {
	return prefix + "_" + strconv.Itoa(index)
}

func listField(rec Record, name string) ([]any, error) {
	raw, ok := rec[name]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want array", ErrMalformedRecord, name, raw)
	}
	return items, nil
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Record:
		return typed, true
	default:
		return nil, false
	}
}
