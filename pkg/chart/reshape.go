package chart

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/schema"
)

var producerSchema = schema.MustNewValidator()

// producerPayload is the {data_names, data} shape emitted by the simulation.
type producerPayload struct {
	DataNames []string      `json:"data_names"`
	Data      []producerRow `json:"data"`
}

// producerRow decodes the [x, [v...]] tuple.
type producerRow struct {
	X      float64
	Values []float64
}

func (r *producerRow) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return fmt.Errorf("row must be [x, values], got %d elements", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &r.X); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &r.Values)
}

// Reshape validates a producer payload and converts it to a Dataset.
// Any structural problem is an INVALID_FORMAT error.
func Reshape(raw interface{}) (*Dataset, error) {
	if raw == nil {
		return nil, errors.InvalidFormat("payload is empty")
	}
	if err := producerSchema.Validate(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "invalid data format")
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "invalid data format")
	}
	var p producerPayload
	if err := json.Unmarshal(encoded, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidFormat, "invalid data format")
	}

	seen := make(map[string]struct{}, len(p.DataNames))
	for _, name := range p.DataNames {
		if _, dup := seen[name]; dup {
			return nil, errors.InvalidFormat(fmt.Sprintf("duplicate variable name %q", name))
		}
		seen[name] = struct{}{}
	}

	ds := &Dataset{
		VariableNames: append([]string{}, p.DataNames...),
		Rows:          make([]Row, len(p.Data)),
	}
	for i, row := range p.Data {
		if len(row.Values) != len(p.DataNames) {
			return nil, errors.InvalidFormat(fmt.Sprintf("row %d has %d values, expected %d", i, len(row.Values), len(p.DataNames))).
				WithDetail("row", i)
		}
		values := row.Values
		if values == nil {
			values = []float64{}
		}
		ds.Rows[i] = Row{X: row.X, Values: values}
	}
	return ds, nil
}
