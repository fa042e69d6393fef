package commands

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/alterra-community/alterra-bot/internal/config"
	"github.com/alterra-community/alterra-bot/internal/guilds"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// Workflow implements the guild setup commands over the config store.
type Workflow struct {
	store       *guilds.Store
	publishMode string

	// Guilds this process has already published a verification message
	// for. Only consulted in "once" mode; deliberately not persisted,
	// publishing is an action, not configuration state.
	published sync.Map
}

// NewWorkflow creates the setup workflow.
func NewWorkflow(store *guilds.Store, publishMode string) *Workflow {
	return &Workflow{store: store, publishMode: publishMode}
}

// RegisterSetup registers the four admin setup commands on the manager.
func RegisterSetup(m *Manager, w *Workflow) error {
	cmds := []*Command{
		{
			Name:        "setup-channel",
			Description: "Set the current channel as the verification channel (admin only).",
			AdminOnly:   true,
			Handler:     w.handleSetChannel,
		},
		{
			Name:        "setup-role",
			Description: "Set the role granted after verification (admin only).",
			Options: []Option{
				{Name: "role", Description: "Role to grant after verification.", Kind: OptionRole, Required: true},
			},
			AdminOnly: true,
			Handler:   w.handleSetRole,
		},
		{
			Name:        "setup-verify",
			Description: "Post the verification message with the Verify button (admin only).",
			AdminOnly:   true,
			Handler:     w.handlePublish,
		},
		{
			Name:        "setup-show",
			Description: "Show the current setup for this guild (admin only).",
			AdminOnly:   true,
			Handler:     w.handleShow,
		},
	}

	for _, cmd := range cmds {
		if err := m.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// handleSetChannel records the invoking channel as the verification channel.
func (w *Workflow) handleSetChannel(ctx context.Context, args *Args) *Result {
	channelID, err := strconv.ParseInt(args.ChannelID, 10, 64)
	if err != nil {
		return Fail(FailureInternal, internalErrorText, fmt.Errorf("bad channel id %q: %w", args.ChannelID, err))
	}

	w.store.SetChannel(args.GuildID, channelID)
	L_info("setup: channel configured",
		"guild", args.GuildID, "channel", channelID, "user", args.UserID, "invocation", args.InvocationID)
	return OK(fmt.Sprintf("Verification channel set to this channel (ID: %d).", channelID))
}

// handleSetRole records the role handed out after verification.
func (w *Workflow) handleSetRole(ctx context.Context, args *Args) *Result {
	raw := args.Options["role"]
	roleID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Fail(FailureInternal, internalErrorText, fmt.Errorf("bad role id %q: %w", raw, err))
	}

	w.store.SetRole(args.GuildID, roleID)
	L_info("setup: role configured",
		"guild", args.GuildID, "role", roleID, "user", args.UserID, "invocation", args.InvocationID)
	return OK(fmt.Sprintf("Verified role set to <@&%d>.", roleID))
}

// handlePublish posts the verification message to the configured channel.
// Publishing requires a configured channel but not a configured role: the
// role is only consumed by the button handler.
func (w *Workflow) handlePublish(ctx context.Context, args *Args) *Result {
	cfg, _ := w.store.Get(args.GuildID)
	if !cfg.HasChannel() {
		return Fail(FailureNotConfigured,
			"No verification channel is set. Run /setup-channel in the target channel first.", nil)
	}

	if w.publishMode == config.PublishOnce {
		if _, done := w.published.Load(args.GuildID); done {
			return OK("A verification message was already published by this process. Restart the bot to publish again.")
		}
	}

	channel, err := args.Platform.ResolveChannel(ctx, args.GuildID, cfg.ChannelID)
	if err != nil {
		return Fail(FailureChannelUnavailable,
			"The configured channel can't be found. Re-run /setup-channel.", err)
	}

	if err := args.Platform.SendVerification(ctx, channel.ID); err != nil {
		return Fail(FailureTransport,
			"Failed to send the verification message. Check the bot's permissions in the channel.", err)
	}

	if w.publishMode == config.PublishOnce {
		w.published.Store(args.GuildID, struct{}{})
	}

	L_info("setup: verification message published",
		"guild", args.GuildID, "channel", channel.ID, "user", args.UserID, "invocation", args.InvocationID)
	return OK(fmt.Sprintf("Verification message sent to %s.", channel.Mention))
}

// handleShow reports the current configuration, field by field.
func (w *Workflow) handleShow(ctx context.Context, args *Args) *Result {
	cfg, _ := w.store.Get(args.GuildID)

	channel := "not set"
	if cfg.HasChannel() {
		channel = fmt.Sprintf("<#%d>", cfg.ChannelID)
	}
	role := "not set"
	if cfg.HasRole() {
		role = fmt.Sprintf("<@&%d>", cfg.RoleID)
	}

	return OK(fmt.Sprintf("Channel: %s\nRole: %s", channel, role))
}
