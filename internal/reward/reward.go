// Package reward runs the configured reward command for an accepted report.
package reward

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const PlayerPlaceholder = "%player%"

var ErrUnknownCode = errors.New("unknown reward code")

type Hook interface {
	Execute(ctx context.Context, code string, submitterName string) error
}

// Console runs a fully rendered reward command.
type Console interface {
	Dispatch(ctx context.Context, command string) error
}

type CommandHook struct {
	commands map[string]string
	console  Console
}

func NewCommandHook(commands map[string]string, console Console) *CommandHook {
	copied := make(map[string]string, len(commands))
	for code, command := range commands {
		copied[code] = command
	}
	return &CommandHook{commands: copied, console: console}
}

func (h *CommandHook) Has(code string) bool {
	_, ok := h.commands[code]
	return ok
}

func (h *CommandHook) Execute(ctx context.Context, code string, submitterName string) error {
	command, ok := h.commands[code]
	if !ok || strings.TrimSpace(command) == "" {
		return errors.WithMessagef(ErrUnknownCode, "code %q", code)
	}
	command = strings.ReplaceAll(command, PlayerPlaceholder, submitterName)
	return errors.WithMessagef(h.console.Dispatch(ctx, command), "dispatch reward %q", code)
}

type LogConsole struct {
	l *log.Entry
}

func NewLogConsole() *LogConsole {
	return &LogConsole{l: log.WithField("context", "reward_console")}
}

func (c *LogConsole) Dispatch(_ context.Context, command string) error {
	c.l.WithField("command", command).Info("reward dispatched")
	return nil
}
