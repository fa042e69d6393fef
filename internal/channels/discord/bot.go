// Package discord provides the Discord adapter for the bot.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alterra-community/alterra-bot/internal/commands"
	"github.com/alterra-community/alterra-bot/internal/components"
	"github.com/alterra-community/alterra-bot/internal/config"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// Verification message content, kept byte-for-byte stable across publishes.
const (
	embedTitle       = "Alterra Verification"
	embedDescription = "Please complete this verification in order to be a member of the server."
	embedFooter      = "Alterra • Be safe. Be verified."
	embedColor       = 0xFFA500
	verifyLabel      = "Verify"
)

// Bot owns the Discord session and routes interactions to the command
// manager and the component registry.
type Bot struct {
	session  *discordgo.Session
	manager  *commands.Manager
	registry *components.Registry
	timeout  time.Duration

	// Guild ids already seen this session, to tell the initial
	// guild-create burst apart from genuinely new joins.
	synced sync.Map

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the Discord bot. The session is not opened yet; call Start.
func New(cfg *config.Config, manager *commands.Manager, registry *components.Registry) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	// Guild membership is needed for the future role grant; message
	// content is not, slash commands and components don't require it.
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		session:  session,
		manager:  manager,
		registry: registry,
		timeout:  cfg.APITimeout,
		ctx:      ctx,
		cancel:   cancel,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onInteraction)
	L_debug("discord: handlers registered")

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Stop cancels in-flight work and closes the gateway connection.
func (b *Bot) Stop() {
	b.cancel()
	if err := b.session.Close(); err != nil {
		L_warn("discord: close failed", "error", err)
	}
}

// reqCtx bounds one REST call. No platform call may hang indefinitely.
func (b *Bot) reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.ctx, b.timeout)
}

// onReady logs the bot identity and syncs commands to every guild the
// process currently serves.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	L_info("discord: connected",
		"user", s.State.User.Username,
		"id", s.State.User.ID,
		"guilds", len(r.Guilds),
	)

	// Mark the initial guilds seen before any goroutine runs, so the
	// availability burst of GuildCreate events can't double-sync them.
	guildIDs := make([]string, 0, len(r.Guilds))
	for _, g := range r.Guilds {
		guildIDs = append(guildIDs, g.ID)
		b.markGuildSeen(g.ID)
	}
	go b.syncAll(b.ctx, guildIDs)
}

// onGuildCreate syncs commands for guilds joined after startup.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if !b.markGuildSeen(g.ID) {
		return // initial availability burst, onReady covers these
	}
	L_info("discord: joined guild, syncing commands", "guild", g.ID)
	go func() {
		if err := b.syncGuild(b.ctx, g.ID); err != nil {
			L_error("discord: command sync failed for new guild", "guild", g.ID, "error", err)
		}
	}()
}

// onInteraction routes slash commands and component clicks. Exactly one
// (ephemeral) response is produced per interaction, even on failure.
func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if IsShuttingDown() {
		return
	}

	args := b.buildArgs(i)

	var result *commands.Result
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		args.Options = optionValues(data.Options)
		result = b.manager.Execute(b.ctx, data.Name, args)
	case discordgo.InteractionMessageComponent:
		result = b.registry.Dispatch(b.ctx, i.MessageComponentData().CustomID, args)
	default:
		return
	}

	b.respond(i.Interaction, result.Text)
}

// buildArgs resolves the caller identity and admin authorization for one
// interaction. Permission resolution is the platform's: the member's
// computed permissions arrive on the interaction payload.
func (b *Bot) buildArgs(i *discordgo.InteractionCreate) *commands.Args {
	args := &commands.Args{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Platform:  b,
	}
	if i.Member != nil && i.Member.User != nil {
		args.UserID = i.Member.User.ID
		args.Username = i.Member.User.Username
		args.IsAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	}
	return args
}

// optionValues flattens interaction options to name -> raw string value.
func optionValues(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	if len(opts) == 0 {
		return nil
	}
	values := make(map[string]string, len(opts))
	for _, opt := range opts {
		switch v := opt.Value.(type) {
		case string:
			values[opt.Name] = v
		case float64:
			values[opt.Name] = strconv.FormatInt(int64(v), 10)
		default:
			values[opt.Name] = fmt.Sprintf("%v", v)
		}
	}
	return values
}

// respond sends the single ephemeral acknowledgment for an interaction.
func (b *Bot) respond(i *discordgo.Interaction, text string) {
	ctx, cancel := b.reqCtx()
	defer cancel()

	err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		L_error("discord: failed to respond to interaction", "guild", i.GuildID, "error", err)
	}
}

// ResolveChannel implements commands.Platform.
func (b *Bot) ResolveChannel(ctx context.Context, guildID string, channelID int64) (*commands.ChannelInfo, error) {
	id := strconv.FormatInt(channelID, 10)

	// State cache first, REST as fallback
	if ch, err := b.session.State.Channel(id); err == nil && ch.GuildID == guildID {
		return channelInfo(ch), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	ch, err := b.session.Channel(id, discordgo.WithContext(callCtx))
	if err != nil {
		return nil, wrapRESTError(err)
	}
	if ch.GuildID != guildID {
		// A channel id from another guild never resolves here.
		return nil, commands.ErrNotFound
	}
	return channelInfo(ch), nil
}

func channelInfo(ch *discordgo.Channel) *commands.ChannelInfo {
	id, _ := strconv.ParseInt(ch.ID, 10, 64)
	return &commands.ChannelInfo{
		ID:      id,
		Name:    ch.Name,
		Mention: ch.Mention(),
	}
}

// SendVerification implements commands.Platform. The custom id on the
// button is process-stable, so clicks on any previously published message
// keep routing to the registered handler.
func (b *Bot) SendVerification(ctx context.Context, channelID int64) error {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	_, err := b.session.ChannelMessageSendComplex(strconv.FormatInt(channelID, 10), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       embedTitle,
				Description: embedDescription,
				Color:       embedColor,
				Footer:      &discordgo.MessageEmbedFooter{Text: embedFooter},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    verifyLabel,
						Style:    discordgo.PrimaryButton,
						CustomID: components.VerifyButtonID,
					},
				},
			},
		},
	}, discordgo.WithContext(callCtx))
	if err != nil {
		return wrapRESTError(err)
	}
	return nil
}
