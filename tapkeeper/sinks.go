package tapkeeper

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/taptarget/report"
)

// BuildSinks creates the report sinks described by cfg.Sinks. With no sink
// configured, reports go to stdout as JSON lines.
func BuildSinks(cfg *Config, logger *slog.Logger) ([]report.Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Sinks) == 0 {
		return []report.Sink{report.NewStdout(nil)}, nil
	}

	sinks := make([]report.Sink, 0, len(cfg.Sinks))
	for i, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, report.NewStdout(nil))
		case "webhook":
			sinks = append(sinks, report.NewWebhook(sc.URL, report.WithWebhookLogger(logger)))
		case "markdown":
			if sc.Path == "" {
				sinks = append(sinks, report.NewMarkdown(os.Stdout))
				continue
			}
			m, err := report.NewMarkdownDir(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("tapkeeper: sinks[%d]: %w", i, err)
			}
			sinks = append(sinks, m)
		default:
			return nil, fmt.Errorf("tapkeeper: sinks[%d]: unknown type %q", i, sc.Type)
		}
	}
	return sinks, nil
}
