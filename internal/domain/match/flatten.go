package match

// Flatten replaces every nested object with one column per leaf path, joined
// with Separator. Arrays, scalars and nulls are leaves; an empty object yields
// no column.
func Flatten(rec Record) Row {
	row := make(Row, len(rec)*2)
	flattenInto(row, "", rec)
	return row
}

func flattenInto(row Row, prefix string, obj map[string]any) {
	for key, value := range obj {
		column := key
		if prefix != "" {
			column = prefix + Separator + key
		}
		if nested, ok := asObject(value); ok {
			flattenInto(row, column, nested)
			continue
		}
		row[column] = value
	}
}

// Project drops DroppedColumns. Names absent from the row are ignored.
func Project(row Row) Row {
	out := make(Row, len(row))
	for column, value := range row {
		if IsDropped(column) {
			continue
		}
		out[column] = value
	}
	return out
}

// Transform runs expand, flatten and project on one record.
func Transform(rec Record) (Row, error) {
	expanded, err := Expand(rec)
	if err != nil {
		return nil, err
	}
	return Project(Flatten(expanded)), nil
}
