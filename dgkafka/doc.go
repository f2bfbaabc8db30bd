// Package dgkafka bridges detektor graphs and Kafka.
//
// The engine itself performs no I/O: a Source consumes a Kafka topic and
// pushes deserialized TopicStates through a detektor.Runner, and a Sink
// watches evaluation outputs and produces states of one kind back to a
// Kafka topic. Wiring is explicit:
//
//	g := detektor.New()
//	// ... add detectors ...
//
//	sink, _ := dgkafka.NewSink[OverheatingState](brokers, "overheating", dgkafka.JSONSerializer[OverheatingState]())
//	runner := detektor.NewRunner(g, detektor.WithOutputs(sink.HandleOutputs))
//
//	source, _ := dgkafka.NewSource[TemperatureSample](runner, brokers, "temperature", dgkafka.JSONDeserializer[TemperatureSample]())
//
//	go source.Run(ctx)
//	runner.Run(ctx)
//
// Serdes follow the usual Serializer/Deserializer function types with
// JSON and String codecs included.
package dgkafka
