package dgkafka

import "encoding/json"

// Serde bundles the two directions of a TopicState's wire codec.
type Serde[T any] struct {
	Serializer   Serializer[T]
	Deserializer Deserializer[T]
}

type Serializer[T any] func(T) ([]byte, error)

type Deserializer[T any] func([]byte) (T, error)

func JSONSerializer[T any]() Serializer[T] {
	return func(t T) ([]byte, error) {
		serialized, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return serialized, nil
	}
}

func JSONDeserializer[T any]() Deserializer[T] {
	return func(b []byte) (T, error) {
		var deserialized T
		if err := json.Unmarshal(b, &deserialized); err != nil {
			return *new(T), err
		}
		return deserialized, nil
	}
}

func JSON[T any]() Serde[T] {
	return Serde[T]{
		Serializer:   JSONSerializer[T](),
		Deserializer: JSONDeserializer[T](),
	}
}

var StringDeserializer = func(data []byte) (string, error) {
	return string(data), nil
}

var StringSerializer = func(data string) ([]byte, error) {
	return []byte(data), nil
}

var String = Serde[string]{
	Serializer:   StringSerializer,
	Deserializer: StringDeserializer,
}
