package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/alterra-community/alterra-bot/internal/commands"
	"github.com/alterra-community/alterra-bot/internal/config"
	"github.com/alterra-community/alterra-bot/internal/guilds"
)

type fakeRegistrar struct {
	appID    string
	guildID  string
	payloads []*discordgo.ApplicationCommand
	err      error
}

func (f *fakeRegistrar) ApplicationCommandBulkOverwrite(appID string, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.appID = appID
	f.guildID = guildID
	f.payloads = cmds
	return cmds, f.err
}

func setupManager(t *testing.T) *commands.Manager {
	t.Helper()
	store := guilds.NewStore(t.TempDir()+"/guild_config.json", 2)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	m := commands.NewManager()
	if err := commands.RegisterSetup(m, commands.NewWorkflow(store, config.PublishAlways)); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCommandPayloads(t *testing.T) {
	payloads := commandPayloads(setupManager(t))

	if len(payloads) != 4 {
		t.Fatalf("got %d command definitions, want 4", len(payloads))
	}

	byName := make(map[string]*discordgo.ApplicationCommand)
	for _, p := range payloads {
		if p.Description == "" {
			t.Errorf("command %q has no description", p.Name)
		}
		byName[p.Name] = p
	}

	for _, name := range []string{"setup-channel", "setup-role", "setup-verify", "setup-show"} {
		if byName[name] == nil {
			t.Errorf("missing command definition %q", name)
		}
	}

	role := byName["setup-role"]
	if role == nil || len(role.Options) != 1 {
		t.Fatalf("setup-role must carry exactly one option, got %+v", role)
	}
	opt := role.Options[0]
	if opt.Type != discordgo.ApplicationCommandOptionRole || opt.Name != "role" || !opt.Required {
		t.Errorf("setup-role option = %+v, want a required role option named \"role\"", opt)
	}
}

func TestRegisterCommands(t *testing.T) {
	registrar := &fakeRegistrar{}
	payloads := commandPayloads(setupManager(t))

	if err := registerCommands(context.Background(), registrar, "app-1", "guild-1", payloads, time.Second); err != nil {
		t.Fatalf("registerCommands: %v", err)
	}
	if registrar.appID != "app-1" || registrar.guildID != "guild-1" {
		t.Errorf("registered against %s/%s, want app-1/guild-1", registrar.appID, registrar.guildID)
	}
	if len(registrar.payloads) != 4 {
		t.Errorf("registered %d commands, want 4", len(registrar.payloads))
	}
}

func TestRegisterCommandsPropagatesFailure(t *testing.T) {
	registrar := &fakeRegistrar{err: errors.New("upstream down")}
	err := registerCommands(context.Background(), registrar, "app-1", "guild-1", nil, time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGuildCreateSkipsSeenGuilds(t *testing.T) {
	// The bot has no session here: if the handler got past the seen
	// check it would sync against a nil session and crash.
	b := &Bot{}
	b.markGuildSeen("g1")

	b.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1"}})
}

func TestMarkGuildSeen(t *testing.T) {
	b := &Bot{}
	if !b.markGuildSeen("g1") {
		t.Error("first sighting must report new")
	}
	if b.markGuildSeen("g1") {
		t.Error("second sighting must not report new")
	}
	if !b.markGuildSeen("g2") {
		t.Error("different guild must report new")
	}
}
