package codec

import (
	"github.com/bytedance/sonic"
)

// Codec converts values of one concrete type to and from their stored form.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

type jsonCodec[T any] struct {
	api sonic.API
}

// JSON returns a codec producing encoding/json compatible output.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{api: sonic.ConfigStd}
}

func (c jsonCodec[T]) Marshal(v T) ([]byte, error) {
	return c.api.Marshal(v)
}

func (c jsonCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := c.api.Unmarshal(data, &v)
	return v, err
}
