// Package legacy reads the flat export of the old system: one JSON array of
// {model, pk, fields} records, flattened into per-model tables keyed by the
// legacy primary key.
package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-faster/errors"
)

// Fields is the untyped field map of a single legacy record.
type Fields map[string]any

// Dataset maps model name → legacy primary key → fields. Read-only after
// load; every pass of the migration draws from it.
type Dataset map[string]map[string]Fields

// FormatError reports an export item that is missing one of the three
// mandatory keys.
type FormatError struct {
	Index  int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("export item %d: %s", e.Index, e.Reason)
}

type exportItem struct {
	Model  string `json:"model"`
	PK     any    `json:"pk"`
	Fields Fields `json:"fields"`
}

// Load parses the export into a Dataset. Values are carried through as-is;
// no coercion happens at this stage.
func Load(r io.Reader) (Dataset, error) {
	var items []exportItem
	dec := json.NewDecoder(r)
	if err := dec.Decode(&items); err != nil {
		return nil, errors.Wrap(err, "decode export")
	}

	data := make(Dataset)
	for i, item := range items {
		switch {
		case item.Model == "":
			return nil, &FormatError{Index: i, Reason: "missing model"}
		case item.PK == nil:
			return nil, &FormatError{Index: i, Reason: "missing pk"}
		case item.Fields == nil:
			return nil, &FormatError{Index: i, Reason: "missing fields"}
		}
		if data[item.Model] == nil {
			data[item.Model] = make(map[string]Fields)
		}
		data[item.Model][pkString(item.PK)] = item.Fields
	}
	return data, nil
}

// Table returns the records of one model, or an empty table when the export
// has none.
func (d Dataset) Table(model string) map[string]Fields {
	if t, ok := d[model]; ok {
		return t
	}
	return map[string]Fields{}
}

// pkString normalizes a primary key that may arrive as a JSON number or
// string. Integral floats are rendered without a fraction so that a pk of 7
// and "7" address the same record.
func pkString(pk any) string {
	switch v := pk.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
