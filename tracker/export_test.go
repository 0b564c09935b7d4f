package tracker

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"broadcast-coach/model"
)

func testSettings() model.Settings {
	return model.Settings{
		BroadcasterName: "stream_star",
		PromptLanguage:  "en",
		PromptDelay:     5,
		ScannedURL:      "https://example.com/room",
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.AddUserMessage("alice", "hello", false)
	source.RecordUserTip("alice", 100, "great show")
	source.MarkUserOnline("bob")

	payload, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	var envelope model.ExportEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if envelope.Version != "1.0" {
		t.Errorf("version = %q, want 1.0", envelope.Version)
	}
	if len(envelope.Users) != 2 {
		t.Errorf("exported %d users, want 2", len(envelope.Users))
	}

	target, _, _ := newTestTracker(t)
	settings := model.Settings{BroadcasterName: "someone_else"}
	result := target.ImportData(payload, &settings, false, "")
	if !result.Success {
		t.Fatalf("ImportData() failed: %s", result.Message)
	}

	if settings.BroadcasterName != "stream_star" {
		t.Errorf("settings not replaced, BroadcasterName = %q", settings.BroadcasterName)
	}

	alice := target.GetUser("alice")
	if alice == nil {
		t.Fatal("alice missing after import")
	}
	if alice.AmountTippedTotal != 100 {
		t.Errorf("AmountTippedTotal = %v, want 100", alice.AmountTippedTotal)
	}
	if alice.TokenStats.TotalSpent != 100 {
		t.Errorf("TotalSpent = %v, want 100", alice.TokenStats.TotalSpent)
	}
	if bob := target.GetUser("bob"); bob == nil {
		t.Error("bob missing after import")
	} else if bob.IsOnline {
		t.Error("imported users must not come back online")
	}
}

func TestImportReplaceDropsExistingUsers(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.AddUser("incoming")
	payload, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	target, _, _ := newTestTracker(t)
	target.AddUser("resident")

	settings := testSettings()
	if result := target.ImportData(payload, &settings, false, ""); !result.Success {
		t.Fatalf("ImportData() failed: %s", result.Message)
	}

	if target.GetUser("resident") != nil {
		t.Error("replace import should drop existing users")
	}
	if target.GetUser("incoming") == nil {
		t.Error("imported user missing")
	}
}

func TestImportMergeSemantics(t *testing.T) {
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	source, _, _ := newTestTracker(t)
	source.now = fixedClock(older)
	source.AddUserMessage("alice", "old message", false)
	source.RecordUserTip("alice", 50, "")
	source.AddUser("importonly")
	payload, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	target, _, _ := newTestTracker(t)
	target.now = fixedClock(newer)
	target.AddUserMessage("alice", "new message", false)
	target.RecordUserTip("alice", 200, "")
	target.AddUser("residentonly")

	settings := testSettings()
	if result := target.ImportData(payload, &settings, true, ""); !result.Success {
		t.Fatalf("ImportData() failed: %s", result.Message)
	}

	alice := target.GetUser("alice")
	if alice == nil {
		t.Fatal("alice missing after merge")
	}
	if alice.AmountTippedTotal != 200 {
		t.Errorf("merged tip total = %v, want the maximum 200", alice.AmountTippedTotal)
	}
	if alice.LastSeenDate == nil || !alice.LastSeenDate.Equal(newer) {
		t.Errorf("merged lastSeen = %v, want the newer %v", alice.LastSeenDate, newer)
	}
	want := []string{"old message", "new message"}
	if len(alice.MostRecentlySaidThings) != 2 ||
		alice.MostRecentlySaidThings[0] != want[0] ||
		alice.MostRecentlySaidThings[1] != want[1] {
		t.Errorf("merged messages = %v, want union %v (imported first)", alice.MostRecentlySaidThings, want)
	}

	if target.GetUser("residentonly") == nil {
		t.Error("merge must keep users absent from the import")
	}
	if target.GetUser("importonly") == nil {
		t.Error("merge must add users absent locally")
	}
}

func TestEncryptedExportRoundTrip(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.RecordUserTip("alice", 25, "")

	sealed, err := source.ExportData(testSettings(), "hunter2")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("password export should carry the sealed prefix")
	}
	if strings.Contains(sealed, "alice") {
		t.Error("sealed export leaks plaintext")
	}

	target, _, _ := newTestTracker(t)
	settings := testSettings()
	if result := target.ImportData(sealed, &settings, false, "hunter2"); !result.Success {
		t.Fatalf("ImportData() with correct password failed: %s", result.Message)
	}
	if target.GetUser("alice") == nil {
		t.Error("alice missing after encrypted round trip")
	}
}

func TestImportEncryptionErrorTaxonomy(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.AddUser("alice")
	sealed, err := source.ExportData(testSettings(), "correct")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}
	plain, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	tests := []struct {
		name     string
		payload  string
		password string
		message  string
	}{
		{"wrong password", sealed, "incorrect", "Incorrect password"},
		{"password required", sealed, "", "This file is encrypted; a password is required"},
		{"not encrypted", plain, "correct", "A password was given but the file is not encrypted"},
		{"damaged ciphertext", sealedPrefix + "!!not base64!!", "correct", "The encrypted file is damaged and cannot be read"},
		{"truncated ciphertext", sealedPrefix + "AAAA", "correct", "The encrypted file is damaged and cannot be read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, _, _ := newTestTracker(t)
			settings := testSettings()
			result := target.ImportData(tt.payload, &settings, false, tt.password)
			if result.Success {
				t.Fatal("import should have failed")
			}
			if result.Message != tt.message {
				t.Errorf("message = %q, want %q", result.Message, tt.message)
			}
		})
	}
}

func TestImportValidationMessages(t *testing.T) {
	user := func(overrides map[string]interface{}) map[string]interface{} {
		u := map[string]interface{}{
			"username":                  "alice",
			"firstSeenDate":             nil,
			"lastSeenDate":              nil,
			"mostRecentlySaidThings":    []string{},
			"amountTippedTotal":         0,
			"mostRecentTipAmount":       0,
			"mostRecentTipDatetime":     nil,
			"realName":                  nil,
			"realLocation":              nil,
			"preferences":               nil,
			"interests":                 nil,
			"numberOfPrivateShowsTaken": 0,
			"isOnline":                  false,
		}
		for k, v := range overrides {
			if v == deleted {
				delete(u, k)
				continue
			}
			u[k] = v
		}
		return u
	}

	envelope := func(mutate func(m map[string]interface{})) string {
		m := map[string]interface{}{
			"version":   "1.0",
			"timestamp": "2024-06-01T00:00:00Z",
			"users":     []interface{}{},
			"settings": map[string]interface{}{
				"broadcasterName": "x",
				"promptLanguage":  "en",
				"promptDelay":     5,
				"scannedUrl":      "https://example.com",
			},
		}
		if mutate != nil {
			mutate(m)
		}
		payload, _ := json.Marshal(m)
		return string(payload)
	}

	tests := []struct {
		name    string
		payload string
		message string
	}{
		{
			"wrong version",
			envelope(func(m map[string]interface{}) { m["version"] = "2.0" }),
			"Invalid data version. Expected: 1.0",
		},
		{
			"missing version",
			envelope(func(m map[string]interface{}) { delete(m, "version") }),
			"Invalid data version. Expected: 1.0",
		},
		{
			"bad timestamp",
			envelope(func(m map[string]interface{}) { m["timestamp"] = "2024-06-01" }),
			"Invalid or missing timestamp",
		},
		{
			"users not array",
			envelope(func(m map[string]interface{}) { m["users"] = map[string]interface{}{} }),
			"Users data must be an array",
		},
		{
			"missing settings keys",
			envelope(func(m map[string]interface{}) {
				m["settings"] = map[string]interface{}{"broadcasterName": "x"}
			}),
			"Missing required settings: promptLanguage, promptDelay, scannedUrl",
		},
		{
			"user missing field",
			envelope(func(m map[string]interface{}) {
				m["users"] = []interface{}{user(map[string]interface{}{"isOnline": deleted})}
			}),
			"Invalid user at index 0: Missing required field: isOnline",
		},
		{
			"user wrong type",
			envelope(func(m map[string]interface{}) {
				m["users"] = []interface{}{user(map[string]interface{}{"amountTippedTotal": "lots"})}
			}),
			"Invalid user at index 0: Invalid type for field amountTippedTotal. Expected: number",
		},
		{
			"nullable date accepts null but not garbage",
			envelope(func(m map[string]interface{}) {
				m["users"] = []interface{}{user(map[string]interface{}{"lastSeenDate": "yesterday"})}
			}),
			"Invalid user at index 0: Invalid type for field lastSeenDate. Expected: isodate|null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, _, _ := newTestTracker(t)
			settings := testSettings()
			result := target.ImportData(tt.payload, &settings, false, "")
			if result.Success {
				t.Fatal("import should have failed validation")
			}
			if result.Message != tt.message {
				t.Errorf("message = %q, want %q", result.Message, tt.message)
			}
		})
	}
}

// deleted marks a key for removal in the validation test fixtures.
var deleted = struct{ remove bool }{true}

func TestImportSizeLimit(t *testing.T) {
	target, _, _ := newTestTracker(t)
	target.cfg.MaxImportBytes = 64

	big := `{"version":"1.0","padding":"` + strings.Repeat("x", 128) + `"}`
	settings := testSettings()
	result := target.ImportData(big, &settings, false, "")
	if result.Success {
		t.Fatal("oversized import should fail")
	}
	if result.Message != "File size exceeds 10MB limit" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestImportWritesBackupFirst(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.AddUser("incoming")
	payload, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	target, backend, _ := newTestTracker(t)
	target.AddUser("resident")

	settings := testSettings()
	if result := target.ImportData(payload, &settings, false, ""); !result.Success {
		t.Fatalf("ImportData() failed: %s", result.Message)
	}

	stored, found, err := backend.Get(context.Background(), target.backupKey())
	if err != nil || !found {
		t.Fatalf("backup missing: found=%v err=%v", found, err)
	}

	var backup model.ExportEnvelope
	if err := json.Unmarshal([]byte(stored), &backup); err != nil {
		t.Fatalf("backup is not valid JSON: %v", err)
	}
	if backup.BackupType != "pre-import" {
		t.Errorf("backupType = %q, want pre-import", backup.BackupType)
	}
	if len(backup.Users) != 1 || backup.Users[0].Username != "resident" {
		t.Errorf("backup should snapshot the pre-import directory, got %+v", backup.Users)
	}
}

func TestRestoreFromBackup(t *testing.T) {
	source, _, _ := newTestTracker(t)
	source.AddUser("incoming")
	payload, err := source.ExportData(testSettings(), "")
	if err != nil {
		t.Fatalf("ExportData() error = %v", err)
	}

	target, _, _ := newTestTracker(t)
	target.RecordUserTip("resident", 75, "")

	settings := testSettings()
	if result := target.ImportData(payload, &settings, false, ""); !result.Success {
		t.Fatalf("ImportData() failed: %s", result.Message)
	}
	if target.GetUser("resident") != nil {
		t.Fatal("import should have replaced the directory")
	}

	if result := target.RestoreFromBackup(&settings); !result.Success {
		t.Fatalf("RestoreFromBackup() failed: %s", result.Message)
	}
	resident := target.GetUser("resident")
	if resident == nil {
		t.Fatal("resident missing after restore")
	}
	if resident.AmountTippedTotal != 75 {
		t.Errorf("restored tip total = %v, want 75", resident.AmountTippedTotal)
	}
}

func TestRestoreWithoutBackup(t *testing.T) {
	target, _, _ := newTestTracker(t)
	settings := testSettings()
	result := target.RestoreFromBackup(&settings)
	if result.Success {
		t.Fatal("restore without a backup should fail")
	}
	if result.Message != "No backup found" {
		t.Errorf("message = %q, want %q", result.Message, "No backup found")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte(`{"hello":"world"}`)

	sealed, err := seal(plaintext, "secret")
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatal("sealed output missing prefix")
	}

	opened, err := open(sealed, "secret")
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Errorf("open() = %q, want %q", opened, plaintext)
	}

	if _, err := open(sealed, "wrong"); err != ErrWrongPassword {
		t.Errorf("open() with wrong password error = %v, want ErrWrongPassword", err)
	}
	if _, err := open("just text", "secret"); err != ErrNotEncrypted {
		t.Errorf("open() on plaintext error = %v, want ErrNotEncrypted", err)
	}
}
