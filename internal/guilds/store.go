// Package guilds owns the durable per-guild configuration store.
package guilds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alterra-community/alterra-bot/internal/config"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

// GuildConfig is one guild's settings. A zero field means "not set".
// Keys this version doesn't know about are kept across load/save so a
// newer file format survives a rewrite by an older binary.
type GuildConfig struct {
	ChannelID int64
	RoleID    int64

	extra map[string]json.RawMessage
}

// HasChannel reports whether a verification channel has been configured.
func (g *GuildConfig) HasChannel() bool { return g.ChannelID != 0 }

// HasRole reports whether a verified role has been configured.
func (g *GuildConfig) HasRole() bool { return g.RoleID != 0 }

// UnmarshalJSON accepts channel_id/role_id as JSON numbers or strings and
// stashes any unknown keys for later re-emission.
func (g *GuildConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, val := range raw {
		switch key {
		case "channel_id":
			id, err := parseID(val)
			if err != nil {
				return fmt.Errorf("channel_id: %w", err)
			}
			g.ChannelID = id
		case "role_id":
			id, err := parseID(val)
			if err != nil {
				return fmt.Errorf("role_id: %w", err)
			}
			g.RoleID = id
		default:
			if g.extra == nil {
				g.extra = make(map[string]json.RawMessage)
			}
			g.extra[key] = val
		}
	}
	return nil
}

// MarshalJSON emits the known fields (when set) plus any preserved keys.
func (g GuildConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(g.extra)+2)
	for key, val := range g.extra {
		out[key] = val
	}
	if g.ChannelID != 0 {
		out["channel_id"] = json.RawMessage(strconv.FormatInt(g.ChannelID, 10))
	}
	if g.RoleID != 0 {
		out["role_id"] = json.RawMessage(strconv.FormatInt(g.RoleID, 10))
	}
	return json.Marshal(out)
}

// parseID reads an id that may be encoded as a number or a string.
func parseID(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// Store maps guild id -> GuildConfig and mirrors every mutation to disk
// before returning (write-through). All access goes through one mutex, so
// a read-merge-write never loses a concurrent update.
type Store struct {
	mu         sync.Mutex
	path       string
	maxBackups int
	configs    map[string]*GuildConfig

	// Serialized form of the last successful save, used by the watcher to
	// ignore events caused by our own writes.
	lastSaved []byte
}

// NewStore creates a store persisting to path. Call Load before use.
func NewStore(path string, maxBackups int) *Store {
	return &Store{
		path:       path,
		maxBackups: maxBackups,
		configs:    make(map[string]*GuildConfig),
	}
}

// Path returns the durable file path.
func (s *Store) Path() string { return s.path }

// Load reads the durable file into memory. A missing file means no
// configuration yet; so does a malformed one (logged, never fatal).
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			L_debug("guilds: no config file yet", "path", s.path)
			s.configs = make(map[string]*GuildConfig)
			return nil
		}
		return fmt.Errorf("failed to read guild config: %w", err)
	}

	configs, err := decode(data)
	if err != nil {
		// Corrupt state is treated as "no configuration yet", the
		// in-memory store starts empty and the next save rewrites it.
		L_error("guilds: config file is malformed, starting empty", "path", s.path, "error", err)
		s.configs = make(map[string]*GuildConfig)
		return nil
	}

	s.configs = configs
	s.lastSaved = data
	L_info("guilds: config loaded", "path", s.path, "guilds", len(configs))
	return nil
}

func decode(data []byte) (map[string]*GuildConfig, error) {
	configs := make(map[string]*GuildConfig)
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, err
	}
	for id, cfg := range configs {
		if cfg == nil {
			configs[id] = &GuildConfig{}
		}
	}
	return configs, nil
}

// Get returns a copy of the guild's config. An absent record reads the
// same as an all-unset one.
func (s *Store) Get(guildID string) (GuildConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[guildID]
	if !ok {
		return GuildConfig{}, false
	}
	return *cfg, true
}

// Len returns the number of guilds with at least one field set.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.configs)
}

// SetChannel records the verification channel for a guild and persists.
func (s *Store) SetChannel(guildID string, channelID int64) GuildConfig {
	return s.upsert(guildID, func(cfg *GuildConfig) {
		cfg.ChannelID = channelID
	})
}

// SetRole records the verified role for a guild and persists.
func (s *Store) SetRole(guildID string, roleID int64) GuildConfig {
	return s.upsert(guildID, func(cfg *GuildConfig) {
		cfg.RoleID = roleID
	})
}

// upsert creates the record if needed, applies the mutation and saves the
// whole mapping. A failed save is logged and swallowed: in-memory state
// stays authoritative for the rest of the process lifetime.
func (s *Store) upsert(guildID string, apply func(*GuildConfig)) GuildConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[guildID]
	if !ok {
		cfg = &GuildConfig{}
		s.configs[guildID] = cfg
	}
	apply(cfg)

	if err := s.saveLocked(); err != nil {
		L_error("guilds: failed to persist config", "guild", guildID, "error", err)
	}
	return *cfg
}

// saveLocked writes the full mapping atomically. Caller holds s.mu.
func (s *Store) saveLocked() error {
	encoded, err := json.MarshalIndent(s.configs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal guild config: %w", err)
	}
	if err := config.BackupAndWrite(s.path, encoded, s.maxBackups); err != nil {
		return err
	}
	s.lastSaved = encoded
	return nil
}

// reloadIfChanged re-reads the durable file if its contents differ from
// the last write this process made. Used by the watcher.
func (s *Store) reloadIfChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			L_warn("guilds: reload failed", "path", s.path, "error", err)
		}
		return
	}

	if bytes.Equal(normalizeJSON(data), normalizeJSON(s.lastSaved)) {
		return
	}

	configs, err := decode(data)
	if err != nil {
		L_warn("guilds: external edit is malformed, keeping current state", "path", s.path, "error", err)
		return
	}

	s.configs = configs
	s.lastSaved = data
	L_info("guilds: config reloaded after external edit", "path", s.path, "guilds", len(configs))
}

// normalizeJSON compacts JSON so formatting differences don't force a reload.
func normalizeJSON(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}
