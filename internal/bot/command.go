package bot

import (
	"strings"

	"github.com/mohammad-safakhou/reportbot/internal/pipeline"
)

// CommandKind tags a parsed chat line.
type CommandKind int

const (
	CommandNone CommandKind = iota
	CommandPing
	CommandStats
	CommandResearch
)

func (k CommandKind) String() string {
	switch k {
	case CommandPing:
		return "ping"
	case CommandStats:
		return "stats"
	case CommandResearch:
		return "research"
	default:
		return "none"
	}
}

// Command is a parsed chat line.
type Command struct {
	Kind CommandKind
	// ReportKind, Loud and Query are set for CommandResearch only.
	ReportKind string
	Loud       bool
	Query      string
}

// Parse reads msg against trigger (e.g. "research!"). Research commands
// without a type= modifier use defaultKind, or "research" when it is empty.
//
//	research!ping                       -> Ping
//	research!stats                      -> Stats
//	research! some query                -> Research{defaultKind, quiet}
//	research!type=outline!loud a query  -> Research{outline, loud}
//
// Modifiers on the trigger token are "!"-separated; unknown ones are ignored.
// Anything else parses as CommandNone.
func Parse(trigger, defaultKind, msg string) Command {
	fields := strings.Fields(msg)
	if len(fields) == 0 || trigger == "" || !strings.HasPrefix(fields[0], trigger) {
		return Command{}
	}
	suffix := fields[0][len(trigger):]

	if len(fields) == 1 {
		switch suffix {
		case "ping":
			return Command{Kind: CommandPing}
		case "stats":
			return Command{Kind: CommandStats}
		}
		return Command{}
	}

	if defaultKind = strings.TrimSpace(defaultKind); defaultKind == "" {
		defaultKind = pipeline.DefaultReportKind
	}
	cmd := Command{
		Kind:       CommandResearch,
		ReportKind: defaultKind,
		Query:      strings.Join(fields[1:], " "),
	}
	for _, mod := range strings.Split(suffix, "!") {
		switch {
		case mod == "loud":
			cmd.Loud = true
		case strings.HasPrefix(mod, "type="):
			if kind := strings.TrimPrefix(mod, "type="); kind != "" {
				cmd.ReportKind = kind
			}
		}
	}
	return cmd
}
