// Package logfields holds canonical log field names so keys do not
// drift across packages.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyBuildID  = "build_id"
	KeyLocale   = "locale"
	KeySource   = "source"
	KeyDest     = "dest"
	KeyArtifact = "artifact"
	KeyFiles    = "files"
	KeyWorkers  = "workers"
	KeyDuration = "duration"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Locale(name string) slog.Attr       { return slog.String(KeyLocale, name) }
func Source(path string) slog.Attr       { return slog.String(KeySource, path) }
func Dest(path string) slog.Attr         { return slog.String(KeyDest, path) }
func Artifact(path string) slog.Attr     { return slog.String(KeyArtifact, path) }
func Files(n int) slog.Attr              { return slog.Int(KeyFiles, n) }
func Workers(n int) slog.Attr            { return slog.Int(KeyWorkers, n) }
func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
