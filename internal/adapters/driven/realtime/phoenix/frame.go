package phoenix

import (
	"encoding/json"
	"fmt"
)

// Protocol event names.
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"

	topicPhoenix = "phoenix"
)

// Reply statuses.
const (
	replyOK    = "ok"
	replyError = "error"
)

// frame is one protocol message.
type frame struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

// MarshalJSON encodes the frame as a five element array. Empty refs are null.
func (f frame) MarshalJSON() ([]byte, error) {
	payload := f.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return json.Marshal([]any{nullable(f.JoinRef), nullable(f.Ref), f.Topic, f.Event, payload})
}

// UnmarshalJSON decodes a five element array.
func (f *frame) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	if len(parts) != 5 {
		return fmt.Errorf("decode frame: expected 5 elements, got %d", len(parts))
	}

	var joinRef, ref *string
	if err := json.Unmarshal(parts[0], &joinRef); err != nil {
		return fmt.Errorf("decode join_ref: %w", err)
	}
	if err := json.Unmarshal(parts[1], &ref); err != nil {
		return fmt.Errorf("decode ref: %w", err)
	}
	if err := json.Unmarshal(parts[2], &f.Topic); err != nil {
		return fmt.Errorf("decode topic: %w", err)
	}
	if err := json.Unmarshal(parts[3], &f.Event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	f.JoinRef = deref(joinRef)
	f.Ref = deref(ref)
	f.Payload = parts[4]
	return nil
}

// reply is the payload of a phx_reply.
type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// reason extracts {"reason": ...} from an error response.
func (r reply) reason() string {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(r.Response, &body); err == nil && body.Reason != "" {
		return body.Reason
	}
	return string(r.Response)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
