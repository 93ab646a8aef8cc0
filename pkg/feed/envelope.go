package feed

import (
	"github.com/bytedance/sonic"
	"github.com/grovetools/chartview/errors"
)

// DefaultWrapperField is the envelope field the relay uses to carry a
// second, serialized payload.
const DefaultWrapperField = "message"

// Codec decodes envelope bytes.
type Codec interface {
	Unmarshal(data []byte, v interface{}) error
}

// DefaultCodec decodes with sonic in encoding/json compatible mode.
var DefaultCodec Codec = sonic.ConfigStd

// Unwrap decodes an envelope and returns the effective message. When the
// decoded value is an object whose wrapperField holds a string, that string
// is decoded and returned instead. An empty wrapperField disables unwrapping.
func Unwrap(codec Codec, data []byte, wrapperField string) (interface{}, error) {
	if codec == nil {
		codec = DefaultCodec
	}

	var outer interface{}
	if err := codec.Unmarshal(data, &outer); err != nil {
		return nil, errors.DecodeFailed("envelope", err)
	}
	if wrapperField == "" {
		return outer, nil
	}

	obj, ok := outer.(map[string]interface{})
	if !ok {
		return outer, nil
	}
	nested, ok := obj[wrapperField].(string)
	if !ok {
		return outer, nil
	}

	var inner interface{}
	if err := codec.Unmarshal([]byte(nested), &inner); err != nil {
		return nil, errors.DecodeFailed("nested", err).WithDetail("field", wrapperField)
	}
	return inner, nil
}
