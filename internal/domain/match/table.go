package match

import (
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/iter"
)

type transformed struct {
	row Row
	err error
}

// BuildTable transforms records into rows in input order and computes the column union.
func BuildTable(records []Record) (Table, error) {
	results := iter.Map(records, func(rec *Record) transformed {
		row, err := Transform(*rec)
		return transformed{row: row, err: err}
	})

	rows := make([]Row, 0, len(results))
	seen := make(map[string]struct{}, 64)
	columns := make([]string, 0, 64)
	for i, result := range results {
		if result.err != nil {
			return Table{}, fmt.Errorf("record %d: %w", i, result.err)
		}
		for column := range result.row {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			columns = append(columns, column)
		}
		rows = append(rows, result.row)
	}

	sort.SliceStable(columns, func(i, j int) bool { return NaturalLess(columns[i], columns[j]) })

	return Table{Columns: columns, Rows: rows}, nil
}

// Value returns the cell for column in row i and whether it is present.
func (t Table) Value(i int, column string) (any, bool) {
	if i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	value, ok := t.Rows[i][column]
	return value, ok
}

// NaturalLess orders strings lexicographically but compares runs of digits by
// numeric value, so "game_2" sorts before "game_10".
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			si := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			sj := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := trimLeadingZeros(a[si:i])
			nb := trimLeadingZeros(b[sj:j])
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			if i-si != j-sj {
				return i-si < j-sj
			}
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func trimLeadingZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
