package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alterra-community/alterra-bot/internal/commands"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// commandRegistrar is the slice of the Discord session used to register
// command definitions. Tests substitute a fake.
type commandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// commandPayloads translates the registered commands into Discord
// application command definitions.
func commandPayloads(m *commands.Manager) []*discordgo.ApplicationCommand {
	list := m.List()
	payloads := make([]*discordgo.ApplicationCommand, 0, len(list))
	for _, cmd := range list {
		payload := &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: cmd.Description,
		}
		for _, opt := range cmd.Options {
			payload.Options = append(payload.Options, &discordgo.ApplicationCommandOption{
				Type:        optionType(opt.Kind),
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
			})
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

func optionType(kind commands.OptionKind) discordgo.ApplicationCommandOptionType {
	switch kind {
	case commands.OptionRole:
		return discordgo.ApplicationCommandOptionRole
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

// markGuildSeen records a guild id and reports whether it was new.
func (b *Bot) markGuildSeen(guildID string) bool {
	_, loaded := b.synced.LoadOrStore(guildID, struct{}{})
	return !loaded
}

// syncGuild registers the command set for one guild.
func (b *Bot) syncGuild(ctx context.Context, guildID string) error {
	return registerCommands(ctx, b.session, b.session.State.User.ID, guildID, commandPayloads(b.manager), b.timeout)
}

// syncAll registers the command set for every guild, each as an
// independent task: one guild's failure is logged and does not block the
// others or abort startup. A global registration runs afterwards as a
// slow-propagation fallback.
func (b *Bot) syncAll(ctx context.Context, guildIDs []string) {
	payloads := commandPayloads(b.manager)
	appID := b.session.State.User.ID

	var wg sync.WaitGroup
	var failed sync.Map

	for _, guildID := range guildIDs {
		wg.Add(1)
		go func(guildID string) {
			defer wg.Done()
			if err := registerCommands(ctx, b.session, appID, guildID, payloads, b.timeout); err != nil {
				failed.Store(guildID, err)
				L_error("discord: command sync failed", "guild", guildID, "error", err)
				return
			}
			L_debug("discord: commands synced", "guild", guildID)
		}(guildID)
	}
	wg.Wait()

	failures := 0
	failed.Range(func(_, _ any) bool { failures++; return true })
	L_info("discord: guild command sync finished", "guilds", len(guildIDs), "failed", failures)

	// Global registration as fallback; propagation may take up to an hour
	if err := registerCommands(ctx, b.session, appID, "", payloads, b.timeout); err != nil {
		L_error("discord: global command sync failed", "error", err)
	} else {
		L_debug("discord: global commands synced")
	}
}

// registerCommands overwrites the command set for one scope (guild id, or
// "" for global), bounded by timeout.
func registerCommands(ctx context.Context, registrar commandRegistrar, appID, guildID string, payloads []*discordgo.ApplicationCommand, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := registrar.ApplicationCommandBulkOverwrite(appID, guildID, payloads, discordgo.WithContext(callCtx))
	if err != nil {
		return wrapRESTError(err)
	}
	return nil
}
