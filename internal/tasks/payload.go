package tasks

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func uuidParse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil uuid")
	}
	return id, nil
}

// payloadUUID extracts a uuid argument from a task payload. Payloads travel
// through JSON, so values always arrive as strings.
func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	v, ok := payload[key]
	if !ok {
		return uuid.Nil, fmt.Errorf("payload missing %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("payload %q is not a string", key)
	}
	id, err := uuidParse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload %q is not a uuid: %w", key, err)
	}
	return id, nil
}
