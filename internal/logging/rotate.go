package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SessionLogPath names the log file for one planning session. The session
// id comes from the command line, so anything outside [A-Za-z0-9._-] is
// replaced to keep the file inside logsDir.
func SessionLogPath(logsDir, sessionID string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", safeFileName(sessionID), sessionStart.UTC().Format("20060102_150405")),
	)
}

func safeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	s = strings.Trim(s, ".")
	if s == "" {
		return "session"
	}
	return s
}

// NewRotatingFile returns a size-rotated log file writer. maxSizeMB <= 0
// uses lumberjack's default of 100 MB.
func NewRotatingFile(path string, maxSizeMB, maxBackups int, compress bool) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   compress,
	}
}
