package tracker

import (
	"encoding/json"
	"fmt"
	"strings"

	"broadcast-coach/utils"
)

// requiredSettings are the settings keys every envelope must carry.
var requiredSettings = []string{"broadcasterName", "promptLanguage", "promptDelay", "scannedUrl"}

// requiredUserFields maps each required per-user field to its accepted JSON
// shape. Alternatives are separated by "|".
var requiredUserFields = map[string]string{
	"username":                  "string",
	"firstSeenDate":             "isodate|null",
	"lastSeenDate":              "isodate|null",
	"mostRecentlySaidThings":    "array",
	"amountTippedTotal":         "number",
	"mostRecentTipAmount":       "number",
	"mostRecentTipDatetime":     "isodate|null",
	"realName":                  "string|null",
	"realLocation":              "string|null",
	"preferences":               "string|null",
	"interests":                 "string|null",
	"numberOfPrivateShowsTaken": "number",
	"isOnline":                  "boolean",
}

// validateEnvelope checks the structural shape of an import payload before
// it is decoded into typed records. Returns a user-facing message on
// failure.
func validateEnvelope(payload []byte) (string, bool) {
	var envelope struct {
		Version   *string                    `json:"version"`
		Timestamp *string                    `json:"timestamp"`
		Users     *json.RawMessage           `json:"users"`
		Settings  map[string]json.RawMessage `json:"settings"`
	}

	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Sprintf("Import failed: %v", err), false
	}

	if envelope.Version == nil || *envelope.Version != "1.0" {
		return "Invalid data version. Expected: 1.0", false
	}
	if envelope.Timestamp == nil || !utils.IsValidISODate(*envelope.Timestamp) {
		return "Invalid or missing timestamp", false
	}

	if envelope.Users == nil || jsonKind(*envelope.Users) != "array" {
		return "Users data must be an array", false
	}
	if envelope.Settings == nil {
		return "Settings data must be an object", false
	}

	var missing []string
	for _, key := range requiredSettings {
		if _, ok := envelope.Settings[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "Missing required settings: " + strings.Join(missing, ", "), false
	}

	var users []map[string]json.RawMessage
	if err := json.Unmarshal(*envelope.Users, &users); err != nil {
		return "Users data must be an array of objects", false
	}

	for i, user := range users {
		if msg, ok := validateUserFields(user); !ok {
			return fmt.Sprintf("Invalid user at index %d: %s", i, msg), false
		}
	}

	return "", true
}

func validateUserFields(user map[string]json.RawMessage) (string, bool) {
	for field, want := range requiredUserFields {
		raw, ok := user[field]
		if !ok {
			return "Missing required field: " + field, false
		}
		if !matchesType(raw, want) {
			return fmt.Sprintf("Invalid type for field %s. Expected: %s", field, want), false
		}
	}
	return "", true
}

func matchesType(raw json.RawMessage, want string) bool {
	kind := jsonKind(raw)
	for _, alternative := range strings.Split(want, "|") {
		switch alternative {
		case "isodate":
			var s string
			if kind == "string" && json.Unmarshal(raw, &s) == nil && utils.IsValidISODate(s) {
				return true
			}
		default:
			if kind == alternative {
				return true
			}
		}
	}
	return false
}

// jsonKind classifies a raw JSON value by its first significant byte.
func jsonKind(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "missing"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
