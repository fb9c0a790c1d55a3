package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dSock/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(env common.Envelope) ([]byte, error) {
	if env.Data == nil {
		env.Data = json.RawMessage("null")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// payloads are opaque documents, keep <, > and & as they are
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, err
	}

	// Encoder.Encode terminates the value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, env *common.Envelope) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("envelope must be a json object")
	}
	return json.Unmarshal(trimmed, env)
}
