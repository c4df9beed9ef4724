package codec

import (
	"encoding/json"
	"fmt"

	"cache-mate/internal/common/errors"
)

type decodeFunc func(data []byte) (any, error)

// Shape describes what a stored JSON text decodes into. It is either a fixed concrete type,
// a collection of elements, or both; the concrete branch wins when both are set. Shapes are
// built from type parameters once, so decoding never inspects types at runtime.
type Shape struct {
	concreteName   string
	concrete       decodeFunc
	collectionName string
	collection     decodeFunc
}

// Concrete returns a shape decoding into T
func Concrete[T any]() Shape {
	return Shape{
		concreteName: typeName[T](),
		concrete: func(data []byte) (any, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Collection returns a shape decoding into []E
func Collection[E any]() Shape {
	return Shape{
		collectionName: "[]" + typeName[E](),
		collection: func(data []byte) (any, error) {
			var v []E
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Any decodes into whatever encoding/json produces for an untyped target
func Any() Shape {
	return Concrete[any]()
}

// ListOfDocuments is the shape of list-data entries
func ListOfDocuments() Shape {
	return Collection[Document]()
}

// Valid reports whether the shape has at least one branch
func (s Shape) Valid() bool {
	return s.concrete != nil || s.collection != nil
}

// Name identifies the branch Decode will use
func (s Shape) Name() string {
	switch {
	case s.concrete != nil:
		return s.concreteName
	case s.collection != nil:
		return s.collectionName
	default:
		return "<none>"
	}
}

func (s Shape) decoder() (decodeFunc, error) {
	switch {
	case s.concrete != nil:
		return s.concrete, nil
	case s.collection != nil:
		return s.collection, nil
	default:
		return nil, errors.ConfigError("decode shape has neither a concrete nor a collection target")
	}
}

func typeName[T any]() string {
	var zero T
	name := fmt.Sprintf("%T", &zero)
	// drop the leading '*' added to keep interface type names printable
	return name[1:]
}
