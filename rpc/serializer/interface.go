package serializer

import "github.com/ValentinKolb/dSock/rpc/common"

// IRPCSerializer is the interface for all Envelope Serializers
type IRPCSerializer interface {
	// Serialize serializes an Envelope into the byte array carried inside a frame
	// It returns the serialized byte array and an error if any
	Serialize(env common.Envelope) ([]byte, error)
	// Deserialize deserializes a frame payload into an Envelope
	// It takes a byte array and a pointer to an Envelope as parameters
	// It returns an error if any
	Deserialize(b []byte, env *common.Envelope) error
}
