// Package commands provides the command registry and authorized execution.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// User-facing failure texts. Every invocation yields exactly one of these
// or a handler-provided text, never silence.
const (
	permissionDeniedText = "You don't have permission to use this command (admin required)."
	internalErrorText    = "Something went wrong while running the command. The error has been logged."
	unknownCommandText   = "Unknown command."
)

// Manager is the command registry.
type Manager struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{commands: make(map[string]*Command)}
}

// Register adds a command. Registering the same name twice is an
// initialization-time error, fail fast rather than silently overwrite.
func (m *Manager) Register(cmd *Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.ToLower(cmd.Name)
	if _, exists := m.commands[name]; exists {
		return fmt.Errorf("command %q registered twice", name)
	}
	m.commands[name] = cmd
	return nil
}

// MustRegister is Register for startup wiring, panicking on a duplicate.
func (m *Manager) MustRegister(cmd *Command) {
	if err := m.Register(cmd); err != nil {
		panic(err)
	}
}

// Get returns a command by name, or nil.
func (m *Manager) Get(name string) *Command {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commands[strings.ToLower(name)]
}

// List returns all commands sorted by name.
func (m *Manager) List() []*Command {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Command, 0, len(m.commands))
	for _, cmd := range m.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Execute runs a command by name. The authorization check happens once,
// before the handler; a denied caller never reaches the handler and the
// denial is not an operator error. A handler panic is recovered, logged
// with full context and turned into a generic failure. The returned
// result is never nil.
func (m *Manager) Execute(ctx context.Context, name string, args *Args) (result *Result) {
	args.InvocationID = uuid.NewString()

	cmd := m.Get(name)
	if cmd == nil {
		L_warn("commands: unknown command invoked",
			"command", name, "guild", args.GuildID, "user", args.UserID, "invocation", args.InvocationID)
		return Fail(FailureInternal, unknownCommandText, nil)
	}

	if cmd.AdminOnly && !args.IsAdmin {
		L_debug("commands: denied",
			"command", name, "guild", args.GuildID, "user", args.UserID, "invocation", args.InvocationID)
		return Fail(FailurePermissionDenied, permissionDeniedText, nil)
	}

	defer func() {
		if r := recover(); r != nil {
			L_error("commands: handler panicked",
				"command", name, "guild", args.GuildID, "user", args.UserID,
				"invocation", args.InvocationID, "panic", r)
			result = Fail(FailureInternal, internalErrorText, fmt.Errorf("panic: %v", r))
		}
	}()

	result = cmd.Handler(ctx, args)
	if result == nil {
		// A handler must produce an outcome; treat silence as a bug.
		L_error("commands: handler returned no result",
			"command", name, "guild", args.GuildID, "invocation", args.InvocationID)
		return Fail(FailureInternal, internalErrorText, nil)
	}

	if result.Failed() && result.Kind != FailurePermissionDenied {
		L_error("commands: failed",
			"command", name, "guild", args.GuildID, "user", args.UserID,
			"invocation", args.InvocationID, "kind", string(result.Kind), "error", result.Err)
	}
	return result
}
