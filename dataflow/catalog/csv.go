package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/engine"
	"github.com/ominux/raco/dataflow/plan"
)

// LoadCSV reads a headerless CSV file into a relation under the declared
// schema, parsing each field to the declared attribute type.
func LoadCSV(name, path string, schema plan.Schema) (*engine.Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(name, f, schema)
}

// ReadCSV parses CSV records from r into a relation.
func ReadCSV(name string, r io.Reader, schema plan.Schema) (*engine.Relation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(schema)

	var tuples []plan.Tuple
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("relation %q line %d: %w", name, line, err)
		}

		t := make(plan.Tuple, len(schema))
		for i, field := range record {
			v, err := parseField(field, schema[i].Type)
			if err != nil {
				return nil, fmt.Errorf("relation %q line %d attribute %q: %w", name, line, schema[i].Name, err)
			}
			t[i] = v
		}
		tuples = append(tuples, t)
	}

	return engine.NewRelation(name, schema, tuples)
}

func parseField(field string, t dataflow.ScalarType) (interface{}, error) {
	field = strings.TrimSpace(field)
	switch t {
	case dataflow.TypeInt:
		return strconv.ParseInt(field, 10, 64)
	case dataflow.TypeFloat:
		return strconv.ParseFloat(field, 64)
	case dataflow.TypeBool:
		return strconv.ParseBool(field)
	case dataflow.TypeString:
		return field, nil
	default:
		return nil, fmt.Errorf("unknown type %s", t)
	}
}

// ParseSchema parses a "name:type,name:type" declaration into a schema.
func ParseSchema(decl string) (plan.Schema, error) {
	parts := strings.Split(decl, ",")
	schema := make(plan.Schema, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("attribute %q is not name:type", part)
		}
		t, err := dataflow.ParseType(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, err
		}
		schema = append(schema, plan.Attribute{Name: strings.TrimSpace(fields[0]), Type: t})
	}
	return schema, nil
}
