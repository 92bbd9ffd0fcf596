// Package discord is a thin reference client proving the Discord bridge
// contract fixed by the persistence schema's channel_maps and
// active_sessions tables: a mapped channel forwards chat into the player's
// "say" verb, and a bound Discord user is resolved to the same player
// entity across messages. It is not the full bridge — no slash commands,
// embeds, voice, or moderation — only enough to exercise the contract.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rakunlabs/moo/internal/config"
	"github.com/rakunlabs/moo/internal/dispatcher"
	"github.com/rakunlabs/moo/internal/repository"
)

// executeTimeout bounds every chat-triggered verb invocation; the core
// never times out a verb itself, so the caller must.
const executeTimeout = 10 * time.Second

// Bridge relays messages between mapped Discord channels and the rooms
// bound to them.
type Bridge struct {
	session    *discordgo.Session
	repo       *repository.Repository
	dispatcher *dispatcher.Dispatcher
	wellKnown  config.WellKnown
}

// New builds a Bridge. token is the bot token; Open connects it.
func New(token string, repo *repository.Repository, d *dispatcher.Dispatcher, wellKnown config.WellKnown) (*Bridge, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord bridge: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	b := &Bridge{session: session, repo: repo, dispatcher: d, wellKnown: wellKnown}
	session.AddHandler(b.onMessageCreate)

	return b, nil
}

// Open connects to the Discord gateway.
func (b *Bridge) Open() error {
	return b.session.Open()
}

// Close disconnects from the Discord gateway.
func (b *Bridge) Close() error {
	return b.session.Close()
}

func (b *Bridge) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	ctx := context.Background()

	channelMap, err := b.repo.GetChannelMap(ctx, m.ChannelID)
	if err != nil {
		slog.Warn("discord bridge: channel map lookup failed", "channel", m.ChannelID, "err", err)
		return
	}
	if channelMap == nil {
		return
	}

	entityID, err := b.resolveOrProvisionPlayer(ctx, m.Author.ID, m.ChannelID, channelMap.RoomID)
	if err != nil {
		slog.Warn("discord bridge: resolve player failed", "discord_id", m.Author.ID, "err", err)
		return
	}

	send := func(method string, params map[string]any) {
		b.deliver(s, m.ChannelID, method, params)
	}

	execCtx, cancel := context.WithTimeout(ctx, executeTimeout)
	defer cancel()

	if _, err := b.dispatcher.Execute(execCtx, entityID, "say", []any{m.Content}, send); err != nil {
		slog.Warn("discord bridge: say failed", "entity", entityID, "err", err)
	}
}

// resolveOrProvisionPlayer looks up the Discord user's bound player entity
// for this channel, minting a fresh one in roomID if this is its first
// message, mirroring the session layer's guest auto-provisioning.
func (b *Bridge) resolveOrProvisionPlayer(ctx context.Context, discordID, channelID string, roomID int64) (int64, error) {
	existing, err := b.repo.GetActiveSession(ctx, discordID, channelID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.EntityID, nil
	}

	entityID, err := b.repo.CreateEntity(ctx, map[string]any{"name": "Guest", "location": roomID})
	if err != nil {
		return 0, err
	}

	if b.wellKnown.EntityBaseID != 0 {
		protoID := b.wellKnown.EntityBaseID
		if err := b.repo.SetPrototypeID(ctx, entityID, &protoID); err != nil {
			return 0, err
		}
	}

	if err := b.repo.SetActiveSession(ctx, discordID, channelID, entityID); err != nil {
		return 0, err
	}

	return entityID, nil
}

// deliver writes a verb's outbound notification to Discord when it is a
// "say" or "forward" carrying non-empty text; other methods are dropped.
// forward notifications (from a sudo/Bot impersonation) are unwrapped
// the same way as a direct say.
func (b *Bridge) deliver(s *discordgo.Session, channelID, method string, params map[string]any) {
	text, ok := extractText(method, params)
	if !ok {
		return
	}

	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		slog.Warn("discord bridge: send message failed", "channel", channelID, "err", err)
	}
}

func extractText(method string, params map[string]any) (string, bool) {
	if method == "forward" {
		payload, _ := params["payload"].(map[string]any)
		if payload == nil {
			return "", false
		}
		text, _ := payload["text"].(string)
		return text, text != ""
	}

	if method == "say" {
		text, _ := params["text"].(string)
		return text, text != ""
	}

	return "", false
}
