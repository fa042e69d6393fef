// Package components routes message-component interactions (buttons) to
// their handlers by stable custom id.
package components

import (
	"context"
	"fmt"
	"sync"

	"github.com/alterra-community/alterra-bot/internal/commands"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

const (
	expiredControlText = "This button is no longer active. Ask an admin to re-run /setup-verify."
	internalErrorText  = "Something went wrong while handling this interaction. The error has been logged."
)

// Handler reacts to one control interaction. The transport may redeliver
// an interaction, so handlers must tolerate duplicate delivery.
type Handler func(ctx context.Context, args *commands.Args) *commands.Result

// Registry is the dispatch table from custom id to handler. Ids are fixed
// strings chosen at startup, not per message, so a control keeps working
// across process restarts and message re-sends.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a custom id. Binding the same id twice is
// an initialization-time error.
func (r *Registry) Register(customID string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[customID]; exists {
		return fmt.Errorf("control %q registered twice", customID)
	}
	r.handlers[customID] = handler
	return nil
}

// MustRegister is Register for startup wiring, panicking on a duplicate.
func (r *Registry) MustRegister(customID string, handler Handler) {
	if err := r.Register(customID, handler); err != nil {
		panic(err)
	}
}

// Dispatch routes an interaction to the handler bound to customID. An
// unknown id (a control emitted by an older version, or a stale message)
// yields a generic "expired" reply, never a crash. Never returns nil.
func (r *Registry) Dispatch(ctx context.Context, customID string, args *commands.Args) *commands.Result {
	r.mu.RLock()
	handler := r.handlers[customID]
	r.mu.RUnlock()

	if handler == nil {
		L_warn("components: unknown control",
			"control", customID, "guild", args.GuildID, "user", args.UserID)
		return commands.Fail(commands.FailureUnknownControl, expiredControlText, nil)
	}

	result := handler(ctx, args)
	if result == nil {
		L_error("components: handler returned no result", "control", customID, "guild", args.GuildID)
		return commands.Fail(commands.FailureInternal, internalErrorText, nil)
	}
	return result
}
