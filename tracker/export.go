package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"broadcast-coach/model"

	"github.com/rs/zerolog/log"
)

// ExportData produces the versioned JSON envelope holding every user plus a
// snapshot of the broadcaster settings. With a non-empty password the
// envelope is sealed with authenticated encryption.
func (t *Tracker) ExportData(settings model.Settings, password string) (string, error) {
	defer t.recoverOp("ExportData")

	t.mu.Lock()
	envelope := model.ExportEnvelope{
		Version:   model.ExportVersion,
		Timestamp: t.now(),
		Users:     t.allUsersSorted(),
		Settings:  settings,
	}
	t.mu.Unlock()

	payload, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}

	if password == "" {
		return string(payload), nil
	}
	return seal(payload, password)
}

// ImportData ingests an export envelope, replacing or merging the current
// directory. The current state is backed up first; settings are updated in
// place on success. All failure modes come back as a structured result, a
// wrong password being distinguishable from a corrupt file.
func (t *Tracker) ImportData(payload string, settings *model.Settings, merge bool, password string) (result model.ImportResult) {
	defer func() {
		if r := recover(); r != nil {
			t.recoverNotify("ImportData", r)
			result = model.ImportResult{Success: false, Message: "Import failed unexpectedly"}
		}
	}()

	plaintext := []byte(payload)
	if password != "" {
		decrypted, err := open(payload, password)
		if err != nil {
			return model.ImportResult{Success: false, Message: importErrorMessage(err)}
		}
		plaintext = decrypted
	} else if IsSealed(payload) {
		return model.ImportResult{Success: false, Message: importErrorMessage(ErrPasswordRequired)}
	}

	if max := t.maxImportBytes(); len(plaintext) > max {
		return model.ImportResult{Success: false, Message: "File size exceeds 10MB limit"}
	}

	if msg, ok := validateEnvelope(plaintext); !ok {
		return model.ImportResult{Success: false, Message: msg}
	}

	var envelope model.ExportEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return model.ImportResult{Success: false, Message: fmt.Sprintf("Import failed: %v", err)}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeBackup(*settings); err != nil {
		log.Error().Err(err).Msg("Failed to write pre-import backup")
		return model.ImportResult{Success: false, Message: "Failed to back up current data, import aborted"}
	}

	incoming := envelope.Users
	if merge {
		incoming = mergeUsers(t.allUsersSorted(), envelope.Users)
	}

	t.users = make(map[string]*model.UserRecord)
	for _, user := range incoming {
		if !validUsername(user.Username) {
			continue
		}
		t.addUserObject(user)
	}

	*settings = envelope.Settings
	t.mutated()

	return model.ImportResult{Success: true, Message: "Data imported successfully"}
}

// RestoreFromBackup re-imports the pre-import backup envelope, if any.
func (t *Tracker) RestoreFromBackup(settings *model.Settings) model.ImportResult {
	t.mu.Lock()
	backup, found, err := t.store.Get(context.Background(), t.backupKey())
	t.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to read backup")
		return model.ImportResult{Success: false, Message: fmt.Sprintf("Restore failed: %v", err)}
	}
	if !found {
		return model.ImportResult{Success: false, Message: "No backup found"}
	}

	return t.ImportData(backup, settings, false, "")
}

// writeBackup snapshots the current directory and settings under the backup
// key before an import mutates anything. Callers hold the lock.
func (t *Tracker) writeBackup(settings model.Settings) error {
	backup := model.ExportEnvelope{
		Version:    model.ExportVersion,
		Timestamp:  t.now(),
		Users:      t.allUsersSorted(),
		Settings:   settings,
		BackupType: "pre-import",
	}

	payload, err := json.Marshal(backup)
	if err != nil {
		return err
	}
	return t.store.Set(context.Background(), t.backupKey(), string(payload))
}

// mergeUsers combines imported users with existing ones. Imported fields
// win, except: recent messages are unioned (imported first), the tip total
// keeps the maximum, and the newer last-seen date survives.
func mergeUsers(existing, imported []model.UserRecord) []model.UserRecord {
	merged := make([]model.UserRecord, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(existing))
	for i, user := range existing {
		index[user.Username] = i
	}

	for _, in := range imported {
		i, ok := index[in.Username]
		if !ok {
			index[in.Username] = len(merged)
			merged = append(merged, in)
			continue
		}

		current := merged[i]
		out := in
		out.MostRecentlySaidThings = unionStrings(in.MostRecentlySaidThings, current.MostRecentlySaidThings)
		if current.AmountTippedTotal > out.AmountTippedTotal {
			out.AmountTippedTotal = current.AmountTippedTotal
		}
		if timeOrZero(current.LastSeenDate).After(timeOrZero(in.LastSeenDate)) {
			out.LastSeenDate = current.LastSeenDate
		}
		merged[i] = out
	}
	return merged
}

// unionStrings concatenates a then b, dropping duplicates and preserving
// first-occurrence order.
func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (t *Tracker) maxImportBytes() int {
	if t.cfg.MaxImportBytes > 0 {
		return t.cfg.MaxImportBytes
	}
	return 10 * 1024 * 1024
}

// importErrorMessage maps the decryption error taxonomy onto the messages
// shown to the operator.
func importErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrWrongPassword):
		return "Incorrect password"
	case errors.Is(err, ErrPasswordRequired):
		return "This file is encrypted; a password is required"
	case errors.Is(err, ErrNotEncrypted):
		return "A password was given but the file is not encrypted"
	case errors.Is(err, ErrMalformedCiphertext):
		return "The encrypted file is damaged and cannot be read"
	default:
		return fmt.Sprintf("Import failed: %v", err)
	}
}
