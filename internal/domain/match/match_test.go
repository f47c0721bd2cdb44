package match

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return Record(out)
}

const exampleRecord = `{"id":1,"opponents":[{"opponent":{"id":10}},{"opponent":{"id":20}}],"games":[{"map":"dust2"}],"results":[{"score":16}],"modified_at":"2021-01-01"}`

func TestTransform_ExampleRecord(t *testing.T) {
	t.Parallel()

	row, err := Transform(decodeRecord(t, exampleRecord))
	if err != nil {
		t.Fatalf("transform: %v", err)
	}

	want := map[string]string{
		"id":             "1",
		"opponent_0.id":  "10",
		"opponent_1.id":  "20",
		"game_0.map":     "dust2",
		"result_0.score": "16",
	}
	for column, value := range want {
		got, ok := row[column]
		if !ok {
			t.Fatalf("expected column %q in %v", column, row)
		}
		if fmt.Sprint(got) != value {
			t.Fatalf("column %q: got %v want %s", column, got, value)
		}
	}
	for _, absent := range []string{"modified_at", "opponents", "games", "results"} {
		if _, ok := row[absent]; ok {
			t.Fatalf("column %q must be dropped", absent)
		}
	}
	if len(row) != len(want) {
		t.Fatalf("unexpected extra columns: %v", row)
	}
}

func TestExpand_IndexedFieldsFollowListOrder(t *testing.T) {
	t.Parallel()

	rec := decodeRecord(t, `{"games":[{"n":0},{"n":1},{"n":2}],"opponents":[{"opponent":{"id":"a"}},{"opponent":{"id":"b"}}],"results":[{"score":1}]}`)
	out, err := Expand(rec)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	games := rec[FieldGames].([]any)
	for i, game := range games {
		if !reflect.DeepEqual(out[IndexedKey(GamePrefix, i)], game) {
			t.Fatalf("game_%d mismatch: %v vs %v", i, out[IndexedKey(GamePrefix, i)], game)
		}
	}
	if _, ok := out["game_3"]; ok {
		t.Fatalf("unexpected game_3")
	}

	for i, item := range rec[FieldOpponents].([]any) {
		inner := item.(map[string]any)["opponent"]
		if !reflect.DeepEqual(out[IndexedKey(OpponentPrefix, i)], inner) {
			t.Fatalf("opponent_%d must be inner opponent, got %v", i, out[IndexedKey(OpponentPrefix, i)])
		}
	}
	if _, ok := out[FieldGames]; !ok {
		t.Fatalf("source list must remain after expansion")
	}
}

func TestExpand_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rec := decodeRecord(t, exampleRecord)
	before := len(rec)
	if _, err := Expand(rec); err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(rec) != before {
		t.Fatalf("input record was mutated: %v", rec)
	}
	if _, ok := rec["game_0"]; ok {
		t.Fatalf("input record gained indexed field")
	}
}

func TestExpand_EmptyMissingAndNullLists(t *testing.T) {
	t.Parallel()

	rec := decodeRecord(t, `{"id":7,"games":[],"results":null}`)
	out, err := Expand(rec)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	for key := range out {
		if strings.HasPrefix(key, "game_") || strings.HasPrefix(key, "opponent_") || strings.HasPrefix(key, "result_") {
			t.Fatalf("unexpected indexed field %q", key)
		}
	}
}

func TestExpand_MalformedLists(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"games not array":     `{"games":{"map":"x"}}`,
		"opponent not object": `{"opponents":[1]}`,
		"results scalar":      `{"results":"3-1"}`,
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := Expand(decodeRecord(t, raw)); !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestExpand_OpponentWithoutInnerKeyIsNull(t *testing.T) {
	t.Parallel()

	out, err := Expand(decodeRecord(t, `{"opponents":[{"type":"Team"}]}`))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	value, ok := out["opponent_0"]
	if !ok || value != nil {
		t.Fatalf("expected opponent_0=nil, got %v (present=%t)", value, ok)
	}
}

func TestFlatten_NestedObjectsAndLeaves(t *testing.T) {
	t.Parallel()

	row := Flatten(decodeRecord(t, `{"a":{"b":{"c":1},"d":[1,2],"e":null,"f":{}},"g":"x"}`))

	if _, ok := row["a.b.c"]; !ok {
		t.Fatalf("expected a.b.c in %v", row)
	}
	if list, ok := row["a.d"].([]any); !ok || len(list) != 2 {
		t.Fatalf("arrays must stay leaves, got %v", row["a.d"])
	}
	if value, ok := row["a.e"]; !ok || value != nil {
		t.Fatalf("null must be a leaf column, got %v", row)
	}
	if _, ok := row["a.f"]; ok {
		t.Fatalf("empty object must not produce a column")
	}
	if _, ok := row["a"]; ok {
		t.Fatalf("nested parent must be replaced by leaves")
	}
	if len(row) != 4 {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestProject_DropsEveryNamedColumn(t *testing.T) {
	t.Parallel()

	if len(DroppedColumns) != 31 {
		t.Fatalf("expected 31 dropped columns, got %d", len(DroppedColumns))
	}

	row := Row{"keep": 1}
	for _, column := range DroppedColumns {
		row[column] = "x"
	}
	out := Project(row)
	if len(out) != 1 || out["keep"] != 1 {
		t.Fatalf("unexpected projection: %v", out)
	}
}

func TestProject_MissingColumnsAreNoop(t *testing.T) {
	t.Parallel()

	row := Row{"id": 1, "name": "a"}
	out := Project(row)
	if !reflect.DeepEqual(map[string]any(out), map[string]any(row)) {
		t.Fatalf("projection changed row without dropped columns: %v", out)
	}
}

func TestBuildTable_UnionOfColumnsAndOrder(t *testing.T) {
	t.Parallel()

	records := []Record{
		decodeRecord(t, `{"id":1,"games":[{"map":"a"},{"map":"b"},{"map":"c"}]}`),
		decodeRecord(t, `{"id":2,"games":[{"map":"d"}],"winner":{"name":"x"}}`),
		decodeRecord(t, `{"id":3}`),
	}

	table, err := BuildTable(records)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	if len(table.Rows) != len(records) {
		t.Fatalf("row count %d != record count %d", len(table.Rows), len(records))
	}

	wantColumns := []string{"game_0.map", "game_1.map", "game_2.map", "id", "winner.name"}
	if !reflect.DeepEqual(table.Columns, wantColumns) {
		t.Fatalf("columns: got %v want %v", table.Columns, wantColumns)
	}

	for i, want := range []string{"1", "2", "3"} {
		got, _ := table.Value(i, "id")
		if got.(json.Number).String() != want {
			t.Fatalf("row %d out of order: id=%v", i, got)
		}
	}
	if _, ok := table.Value(1, "game_2.map"); ok {
		t.Fatalf("shorter record must lack game_2.map")
	}
}

func TestBuildTable_PropagatesRecordIndexOnError(t *testing.T) {
	t.Parallel()

	_, err := BuildTable([]Record{{"id": 1}, {"games": "bad"}})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	if !strings.Contains(err.Error(), "record 1") {
		t.Fatalf("expected record index in error, got %v", err)
	}
}

func TestBuildTable_Empty(t *testing.T) {
	t.Parallel()

	table, err := BuildTable(nil)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	if len(table.Rows) != 0 || len(table.Columns) != 0 {
		t.Fatalf("expected empty table, got %+v", table)
	}
}

func TestNaturalLess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want bool
	}{
		{"game_2", "game_10", true},
		{"game_10", "game_2", false},
		{"game_1.map", "game_1.position", true},
		{"id", "id", false},
		{"a", "ab", true},
		{"opponent_01", "opponent_1", false},
		{"opponent_1", "opponent_01", true},
	}
	for _, tc := range cases {
		if got := NaturalLess(tc.a, tc.b); got != tc.want {
			t.Fatalf("NaturalLess(%q,%q)=%t want %t", tc.a, tc.b, got, tc.want)
		}
	}
}
