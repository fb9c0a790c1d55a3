package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Envelope Structure
// --------------------------------------------------------------------------

// Envelope is the wrapper around every message on the wire.
// UID correlates a request with its response, Data is never interpreted by the transport.
type Envelope struct {
	UID  string          `json:"uid"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope marshals the payload and wraps it with the given uid
func NewEnvelope(uid string, payload any) (*Envelope, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		if raw == nil {
			raw = json.RawMessage("null")
		}
		return &Envelope{UID: uid, Data: raw}, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Envelope{UID: uid, Data: data}, nil
}

// Decode unmarshals the data of the envelope into v
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return json.Unmarshal([]byte("null"), v)
	}
	return json.Unmarshal(e.Data, v)
}

// String returns the envelope as it would appear inside a frame (without length prefix)
func (e *Envelope) String() string {
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return fmt.Sprintf(`{"uid":%q,"data":%s}`, e.UID, string(data))
}

// --------------------------------------------------------------------------
// Received Envelope
// --------------------------------------------------------------------------

// ReplyFunc sends a payload back to the peer an envelope came from
type ReplyFunc func(payload any) error

// ReceivedEnvelope is an envelope handed to message listeners together with a
// reply capability bound to the originating connection and uid
type ReceivedEnvelope struct {
	Envelope
	reply ReplyFunc
}

// NewReceivedEnvelope binds a reply function to an envelope
func NewReceivedEnvelope(env Envelope, reply ReplyFunc) *ReceivedEnvelope {
	return &ReceivedEnvelope{Envelope: env, reply: reply}
}

// Reply sends payload back to the sender, reusing the uid of this envelope
func (r *ReceivedEnvelope) Reply(payload any) error {
	if r.reply == nil {
		return fmt.Errorf("envelope %s cannot be replied to", r.UID)
	}
	return r.reply(payload)
}
