package utils

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// GetEnvVariable reads an env var with a fallback default.
func GetEnvVariable(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// UnmarshalTask decodes an asynq task payload.
func UnmarshalTask(t *asynq.Task, dest interface{}) error {
	return json.Unmarshal(t.Payload(), dest)
}

// ParseStringToUUID parses s, returning uuid.Nil on any failure.
func ParseStringToUUID(s string) uuid.UUID {
	uid, err := uuid.Parse(s)
	if err != nil || s == "" {
		return uuid.Nil
	}
	return uid
}

// SanitizeMetadata keeps primitives plus one level of nested object.
// Arrays and deeper nesting are dropped; gateways reject anything richer.
func SanitizeMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}

	clean := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string, bool, float64, float32, int, int32, int64, json.Number, nil:
			clean[k] = val
		case map[string]interface{}:
			nested := make(map[string]interface{}, len(val))
			for nk, nv := range val {
				switch nv.(type) {
				case string, bool, float64, float32, int, int32, int64, json.Number, nil:
					nested[nk] = nv
				}
			}
			clean[k] = nested
		}
	}
	return clean
}
