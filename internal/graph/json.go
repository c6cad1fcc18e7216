package graph

import (
	"github.com/microsoft/kiota-abstractions-go/serialization"
	jsonserialization "github.com/microsoft/kiota-serialization-json-go"
)

// MarshalJSON encodes a Graph model with the Kiota JSON writer, producing the
// same property names Graph uses on the wire.
func MarshalJSON(p serialization.Parsable) ([]byte, error) {
	writer := jsonserialization.NewJsonSerializationWriter()
	defer writer.Close()

	if err := writer.WriteObjectValue("", p); err != nil {
		return nil, err
	}
	return writer.GetSerializedContent()
}
