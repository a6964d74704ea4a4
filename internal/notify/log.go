package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/types"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// LogFailedInspection appends a failed inspection to the alert log.
func LogFailedInspection(logPath string, r session.Report) error {
	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp:    util.RFC3339Now(),
		Event:        "inspection_failed",
		InspectionID: r.ID,
		Checklist:    r.ChecklistID,
		Inspector:    r.Inspector(),
		FailedItems:  failedItems(r),
	})
}

// WriteTestLog writes a test entry to verify log file configuration.
func WriteTestLog(logPath string) error {
	if logPath == "" {
		return fmt.Errorf("log file path not configured")
	}

	return appendLogEntry(logPath, types.AlertLogEntry{
		Timestamp: util.RFC3339Now(),
		Event:     "test",
	})
}

// appendLogEntry appends a JSON log entry to the file.
func appendLogEntry(logPath string, entry types.AlertLogEntry) error {
	if !util.IsConfigured(logPath) {
		return nil
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeClose(f, "alert log")

	if _, err := f.Write(append(jsonData, '\n')); err != nil {
		return util.WrapError("write log entry", err)
	}

	return nil
}

// ReadAlertLog returns the last maxEntries entries of the alert log, newest
// first. A missing file yields no entries; malformed lines are skipped.
func ReadAlertLog(logPath string, maxEntries int) ([]types.AlertLogEntry, error) {
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return []types.AlertLogEntry{}, nil
	}
	if err != nil {
		return nil, util.WrapError("read log file", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return []types.AlertLogEntry{}, nil
	}
	lines := strings.Split(text, "\n")
	lines = lines[max(0, len(lines)-maxEntries):]

	entries := make([]types.AlertLogEntry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		var entry types.AlertLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	slices.Reverse(entries)
	return entries, nil
}
