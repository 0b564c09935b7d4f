package model

import "time"

// ExportVersion is the only envelope version this build reads or writes.
const ExportVersion = "1.0"

// Settings is the broadcaster-facing configuration snapshot that travels
// inside export envelopes alongside the user data.
type Settings struct {
	BroadcasterName   string `json:"broadcasterName"`
	PromptLanguage    string `json:"promptLanguage"`
	PromptDelay       int    `json:"promptDelay"`
	ScannedURL        string `json:"scannedUrl"`
	AIModel           string `json:"aiModel,omitempty"`
	PreferredLanguage string `json:"preferredLanguage,omitempty"`
}

// ExportEnvelope is the versioned JSON document produced by export and
// consumed by import. BackupType is set only on the pre-import backup copy.
type ExportEnvelope struct {
	Version    string       `json:"version"`
	Timestamp  time.Time    `json:"timestamp"`
	Users      []UserRecord `json:"users"`
	Settings   Settings     `json:"settings"`
	BackupType string       `json:"backupType,omitempty"`
}

// ImportStats summarizes a token-history import.
type ImportStats struct {
	Users  int     `json:"users"`
	Tokens float64 `json:"tokens"`
}

// ImportResult is the structured outcome of a batch import operation;
// failures are reported here rather than raised.
type ImportResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Stats   ImportStats `json:"stats"`
}
