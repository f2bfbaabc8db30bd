package dgkafka

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestJSONSerde(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		serde := JSON[sample]()

		data, err := serde.Serializer(sample{Name: "a", Value: 3})
		assert.NoError(t, err)

		out, err := serde.Deserializer(data)
		assert.NoError(t, err)
		assert.Equal(t, sample{Name: "a", Value: 3}, out)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := JSONDeserializer[sample]()([]byte("{nope"))
		assert.Error(t, err)
	})
}

func TestStringSerde(t *testing.T) {
	data, err := String.Serializer("hello")
	assert.NoError(t, err)
	out, err := String.Deserializer(data)
	assert.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOutputsFanOut(t *testing.T) {
	var a, b int
	fan := Outputs(
		func(o []any) { a += len(o) },
		func(o []any) { b += len(o) },
	)
	fan([]any{1, 2})
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}
