package agent

import (
	"fmt"
	"runtime"
	"strings"
)

// ChatCommand represents a parsed chat command.
type ChatCommand struct {
	Name string   // command name without "/"
	Args []string // arguments after the command
}

// version is set by the build system.
var version = "dev"

// SetVersion sets the version string reported by /version.
func SetVersion(v string) {
	version = v
}

// Version returns the version string reported by /version.
func Version() string {
	return version
}

// ParseCommand checks if text starts with "/" and parses it into a ChatCommand.
// Returns nil if the text is not a command. A "@botname" suffix is dropped.
func ParseCommand(text string) *ChatCommand {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	parts := strings.Fields(text)
	name := strings.TrimPrefix(parts[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return nil
	}

	return &ChatCommand{
		Name: strings.ToLower(name),
		Args: parts[1:],
	}
}

// commandReply returns the reply for a chat command. Every command gets one.
func commandReply(cmd *ChatCommand) string {
	switch cmd.Name {
	case "start", "help":
		return welcomeReply
	case "version":
		return fmt.Sprintf("SkynixIQ %s (%s/%s, Go %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
	default:
		return fmt.Sprintf("Unknown command /%s. Send /help to see what I can do.", cmd.Name)
	}
}
