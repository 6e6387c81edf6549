package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the default slog logger: JSON in production, text otherwise.
func Setup(env string) {
	slog.SetDefault(slog.New(NewStdoutHandler(os.Stdout, env)))
}

func NewStdoutHandler(w io.Writer, env string) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "production" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
