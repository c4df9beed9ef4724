// Package codec converts cache values to and from the JSON text stored in the remote map.
//
// Decoding is tolerant: unknown object fields are ignored. Failures never panic; they come
// back as serialization errors and are logged together with the offending text and the
// target shape so corrupt entries can be traced.
package codec

import (
	"encoding/json"
	"fmt"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
)

// maxLoggedText bounds how much of a bad payload ends up in the log line
const maxLoggedText = 512

// Document is a structured JSON object exchanged with callers
type Document map[string]any

// Documents is the list-shaped value stored under list-data keys
type Documents []Document

// Encode returns the JSON text representation of value.
func Encode(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", errors.SerializationError("failed to encode value", err).
			WithContext("type", fmt.Sprintf("%T", value))
	}
	return string(data), nil
}

// Decode parses text into the target described by shape. The concrete branch of the shape is
// used when present, otherwise the collection branch.
func Decode(text string, shape Shape) (any, error) {
	decode, err := shape.decoder()
	if err != nil {
		return nil, err
	}

	if text == "" {
		return nil, decodeFailure(text, shape, fmt.Errorf("empty input"))
	}

	value, err := decode([]byte(text))
	if err != nil {
		return nil, decodeFailure(text, shape, err)
	}
	return value, nil
}

// DecodeInto parses text into a T
func DecodeInto[T any](text string) (T, error) {
	value, err := Decode(text, Concrete[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	// comma-ok keeps a JSON null decoded into an interface type from panicking
	typed, _ := value.(T)
	return typed, nil
}

func decodeFailure(text string, shape Shape, cause error) error {
	logged := text
	if len(logged) > maxLoggedText {
		logged = logged[:maxLoggedText] + "..."
	}

	logging.GetGlobalLogger().Error("Failed to deserialize value", cause,
		logging.String("source", logged),
		logging.String("shape", shape.Name()),
	)

	return errors.SerializationError("failed to decode value", cause).
		WithContext("shape", shape.Name())
}
