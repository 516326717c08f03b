package ui

import (
	"fmt"
	"strings"
)

// command is one line typed in the composer. Lines not starting with "/"
// are messages.
type command struct {
	name string
	args []string
	// rest is everything after the first argument, spacing preserved.
	// /edit uses it as the new content.
	rest string
}

var usages = map[string]string{
	"login":     "/login <email> <password>",
	"magic":     "/magic <email> [username]",
	"verify":    "/verify <email> <code>",
	"signup":    "/signup <email> <password> [username]",
	"logout":    "/logout",
	"name":      "/name <username>",
	"edit":      "/edit <#id> <new content>",
	"delete":    "/delete <#id>",
	"find":      "/find <terms> [--author name] [--limit n]",
	"telemetry": "/telemetry on|off",
	"captcha":   "/captcha <token>",
	"help":      "/help",
	"quit":      "/quit",
}

// helpOrder lists commands the way /help shows them.
var helpOrder = []string{
	"login", "magic", "verify", "signup", "logout", "name",
	"edit", "delete", "find", "telemetry", "captcha", "quit",
}

func parseCommand(line string) (command, bool) {
	if !strings.HasPrefix(line, "/") {
		return command{}, false
	}
	fields := strings.Fields(line)
	cmd := command{name: strings.ToLower(strings.TrimPrefix(fields[0], "/")), args: fields[1:]}
	if len(cmd.args) > 0 {
		afterName := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		cmd.rest = strings.TrimSpace(strings.TrimPrefix(afterName, cmd.args[0]))
	}
	return cmd, true
}

// arity checks the argument count; most < 0 means unbounded.
func (c command) arity(least, most int) error {
	if len(c.args) < least || (most >= 0 && len(c.args) > most) {
		return fmt.Errorf("usage: %s", c.usage())
	}
	return nil
}

func (c command) arg(i int) string {
	if i < len(c.args) {
		return c.args[i]
	}
	return ""
}

func (c command) usage() string {
	if u, ok := usages[c.name]; ok {
		return u
	}
	return "/help"
}

func helpText() string {
	lines := make([]string, 0, len(helpOrder))
	for _, name := range helpOrder {
		lines = append(lines, usages[name])
	}
	return strings.Join(lines, "  ")
}
