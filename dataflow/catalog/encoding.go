package catalog

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ominux/raco/dataflow"
	"github.com/ominux/raco/dataflow/engine"
	"github.com/ominux/raco/dataflow/plan"
)

// Relation blob layout: a version byte, the schema (attribute count,
// then length-prefixed name plus type byte per attribute), then the
// tuple count and each tuple's values. Every value carries its own type
// tag so int columns promoted to float mid-program round-trip exactly.
const blobVersion = 1

type valueTag byte

const (
	tagNil valueTag = iota
	tagInt
	tagFloat
	tagString
	tagBool
)

// EncodeRelation serializes a relation's schema and tuples to bytes.
func EncodeRelation(rel *engine.Relation) ([]byte, error) {
	schema := rel.Schema()
	tuples := rel.Tuples()

	buf := make([]byte, 0, 64+len(tuples)*len(schema)*9)
	buf = append(buf, blobVersion)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(schema)))
	for _, attr := range schema {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(attr.Name)))
		buf = append(buf, attr.Name...)
		buf = append(buf, byte(attr.Type))
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tuples)))
	for _, t := range tuples {
		for _, v := range t {
			var err error
			buf, err = appendValue(buf, v)
			if err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func appendValue(buf []byte, v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, byte(tagNil)), nil
	case int:
		buf = append(buf, byte(tagInt))
		return binary.BigEndian.AppendUint64(buf, uint64(int64(val))), nil
	case int64:
		buf = append(buf, byte(tagInt))
		return binary.BigEndian.AppendUint64(buf, uint64(val)), nil
	case float64:
		buf = append(buf, byte(tagFloat))
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(val)), nil
	case string:
		buf = append(buf, byte(tagString))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(val)))
		return append(buf, val...), nil
	case bool:
		buf = append(buf, byte(tagBool))
		if val {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	default:
		return nil, fmt.Errorf("cannot encode value type %T", v)
	}
}

// DecodeRelation deserializes a relation blob produced by EncodeRelation.
func DecodeRelation(name string, data []byte) (*engine.Relation, error) {
	r := &blobReader{data: data}

	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	if version != blobVersion {
		return nil, fmt.Errorf("relation %q: unsupported blob version %d", name, version)
	}

	attrCount, err := r.uint16()
	if err != nil {
		return nil, err
	}
	schema := make(plan.Schema, attrCount)
	for i := range schema {
		nameLen, err := r.uint16()
		if err != nil {
			return nil, err
		}
		attrName, err := r.bytes(int(nameLen))
		if err != nil {
			return nil, err
		}
		typeByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		schema[i] = plan.Attribute{Name: string(attrName), Type: dataflow.ScalarType(typeByte)}
	}

	tupleCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	tuples := make([]plan.Tuple, tupleCount)
	for i := range tuples {
		t := make(plan.Tuple, attrCount)
		for j := range t {
			v, err := r.value()
			if err != nil {
				return nil, fmt.Errorf("relation %q tuple %d: %w", name, i, err)
			}
			t[j] = v
		}
		tuples[i] = t
	}

	return engine.NewRelation(name, schema, tuples)
}

type blobReader struct {
	data []byte
	pos  int
}

func (r *blobReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("truncated relation blob at offset %d", r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *blobReader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *blobReader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *blobReader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *blobReader) value() (interface{}, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch valueTag(tag) {
	case tagNil:
		return nil, nil
	case tagInt:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case tagFloat:
		b, err := r.bytes(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case tagString:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBool:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	default:
		return nil, fmt.Errorf("unknown value tag %d", tag)
	}
}
