// Package serializer provides envelope serialization for the socket transport.
// It defines a common interface and the JSON implementation used for the text
// carried inside every frame.
//
// The package focuses on:
//   - Providing a consistent interface between the frame codec and the envelope format
//   - Keeping the payload untouched: the data field is carried as raw JSON
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: Implementation using JSON encoding. HTML escaping is
//     disabled so that payloads are transmitted byte for byte.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewJSONSerializer()
//	data, err := serializer.Serialize(envelope)
//	// ... frame and send data ...
//	var received common.Envelope
//	err = serializer.Deserialize(payload, &received)
package serializer
