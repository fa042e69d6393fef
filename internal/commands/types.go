package commands

import (
	"context"
	"errors"
)

// FailureKind categorizes command failures for logging and user messaging.
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailurePermissionDenied   FailureKind = "permission_denied"
	FailureNotConfigured      FailureKind = "not_configured"
	FailureChannelUnavailable FailureKind = "channel_unavailable"
	FailureUnknownControl     FailureKind = "unknown_control"
	FailurePersistence        FailureKind = "persistence"
	FailureTransport          FailureKind = "transport"
	FailureInternal           FailureKind = "internal"
)

// Sentinel errors returned by Platform implementations.
var (
	// ErrNotFound means the referenced channel no longer exists.
	ErrNotFound = errors.New("channel not found")
	// ErrForbidden means the bot lacks access to the destination.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited means the platform rejected the call for rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Result is the single outcome of a command or control invocation. Text is
// always delivered to the caller as a private (ephemeral) reply.
type Result struct {
	Text string
	Kind FailureKind
	Err  error
}

// Failed reports whether the result carries a failure.
func (r *Result) Failed() bool { return r.Kind != FailureNone }

// OK builds a success result.
func OK(text string) *Result {
	return &Result{Text: text}
}

// Fail builds a failure result with the text shown to the caller.
func Fail(kind FailureKind, text string, err error) *Result {
	return &Result{Text: text, Kind: kind, Err: err}
}

// ChannelInfo describes a resolved channel.
type ChannelInfo struct {
	ID      int64
	Name    string
	Mention string
}

// Platform is the narrow surface commands need from the chat platform.
// The Discord adapter implements it; tests substitute fakes.
type Platform interface {
	// ResolveChannel looks a channel up by id within a guild. Returns
	// ErrNotFound when the channel no longer exists.
	ResolveChannel(ctx context.Context, guildID string, channelID int64) (*ChannelInfo, error)

	// SendVerification posts the verification message (embed plus the
	// Verify button) to the channel. Returns ErrNotFound, ErrForbidden or
	// ErrRateLimited as typed failures.
	SendVerification(ctx context.Context, channelID int64) error
}

// OptionKind is the type of a command parameter.
type OptionKind int

const (
	OptionRole OptionKind = iota
)

// Option is one typed command parameter.
type Option struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
}

// Args carries everything a handler knows about one invocation. It is
// built by the platform adapter per interaction.
type Args struct {
	GuildID   string
	ChannelID string // channel the command was invoked from
	UserID    string
	Username  string
	IsAdmin   bool              // resolved by the platform's permission check
	Options   map[string]string // option name -> raw value (ids as strings)
	Platform  Platform

	// InvocationID correlates the log entries of one invocation. Filled
	// in by Manager.Execute.
	InvocationID string
}

// Handler is the function signature for command handlers.
type Handler func(ctx context.Context, args *Args) *Result

// Command represents one slash command.
type Command struct {
	Name        string
	Description string
	Options     []Option
	AdminOnly   bool
	Handler     Handler
}
