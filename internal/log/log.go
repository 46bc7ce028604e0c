package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON handler writing to stdout as the default slog logger.
// Unknown levels fall back to INFO.
func Setup(level string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, level)))
}

func NewHandler(w io.Writer, level string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
}

func ParseLevel(level string) slog.Level {
	var l slog.Level

	err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level))))
	if err != nil {
		return slog.LevelInfo
	}

	return l
}
