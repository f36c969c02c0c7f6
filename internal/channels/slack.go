package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/config/channel"
)

// SlackChannel implements Slack via Socket Mode. The agent speaks in the
// last channel or DM that addressed it.
type SlackChannel struct {
	Base
	cfg    *channel.SlackConfig
	router *Router

	webClient *slackgo.Client
	smClient  *socketmode.Client
	botUserID string
	mention   *regexp.Regexp

	mu         sync.Mutex
	lastActive string
}

func NewSlackChannel(cfg *channel.SlackConfig, router *Router) *SlackChannel {
	return &SlackChannel{
		// Slack applies its own DM and group policies.
		Base:   NewBase(string(bus.ChannelSlack), nil, WithLogAll(cfg.LogAll), WithRateLimit(cfg.MessagesPerSecond)),
		cfg:    cfg,
		router: router,
	}
}

func (s *SlackChannel) Start(ctx context.Context) error {
	if s.cfg.BotToken == "" || s.cfg.AppToken == "" {
		return errors.New("slack: bot/app token not configured")
	}

	s.webClient = slackgo.New(s.cfg.BotToken, slackgo.OptionAppLevelToken(s.cfg.AppToken))
	if resp, err := s.webClient.AuthTestContext(ctx); err == nil {
		s.botUserID = resp.UserID
		s.mention = regexp.MustCompile(`<@` + regexp.QuoteMeta(s.botUserID) + `>\s*`)
		slog.Info("slack: connected", "bot_user_id", s.botUserID)
	} else {
		slog.Warn("slack: auth test failed", "err", err)
	}
	s.smClient = socketmode.New(s.webClient)

	ep := s.router.OpenTwoWay(s.Name())
	defer ep.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := s.smClient.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("slack: socket mode stopped", "err", err)
		}
	}()
	go s.consume(runCtx, ep.Out)

	return s.Relay(ctx, ep.In, s.send)
}

func (s *SlackChannel) consume(ctx context.Context, out *bus.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.smClient.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, out, evt)
		}
	}
}

func (s *SlackChannel) handleEvent(ctx context.Context, out *bus.Sender, evt socketmode.Event) {
	if evt.Type != socketmode.EventTypeEventsAPI {
		return
	}
	if evt.Request != nil {
		s.smClient.Ack(*evt.Request)
	}
	cb, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	switch ev := cb.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		s.handleInner(ctx, out, "message", ev.User, ev.Channel, ev.ChannelType, ev.SubType, ev.TimeStamp, ev.Text)
	case *slackevents.AppMentionEvent:
		s.handleInner(ctx, out, "app_mention", ev.User, ev.Channel, "channel", "", ev.TimeStamp, ev.Text)
	}
}

func (s *SlackChannel) handleInner(ctx context.Context, out *bus.Sender, evType, userID, channelID, channelType, subtype, ts, text string) {
	if subtype != "" || userID == "" || channelID == "" || userID == s.botUserID {
		return
	}
	// Mentions arrive twice, as message and as app_mention.
	if evType == "message" && s.botUserID != "" && strings.Contains(text, "<@"+s.botUserID+">") {
		return
	}
	if !s.isAllowedSlack(userID, channelID, channelType) {
		return
	}
	if channelType != "im" && !s.shouldRespond(evType, text, channelID) {
		return
	}

	if s.mention != nil {
		text = strings.TrimSpace(s.mention.ReplaceAllString(text, ""))
	}
	if s.cfg.ReactEmoji != "" && ts != "" {
		_ = s.webClient.AddReactionContext(ctx, s.cfg.ReactEmoji, slackgo.ItemRef{Channel: channelID, Timestamp: ts})
	}

	if s.HandleMessage(ctx, out, userID, s.displayName(ctx, userID), text) {
		s.mu.Lock()
		s.lastActive = channelID
		s.mu.Unlock()
	}
}

func (s *SlackChannel) displayName(ctx context.Context, userID string) string {
	u, err := s.webClient.GetUserInfoContext(ctx, userID)
	if err != nil || u == nil {
		return userID
	}
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.Name
}

func (s *SlackChannel) isAllowedSlack(user, channelID, channelType string) bool {
	if channelType == "im" {
		if !s.cfg.DM.Enabled {
			return false
		}
		if s.cfg.DM.Policy == "allowlist" {
			return slices.Contains(s.cfg.DM.AllowFrom, user)
		}
		return true
	}
	if s.cfg.GroupPolicy == "allowlist" {
		return slices.Contains(s.cfg.GroupAllowFrom, channelID)
	}
	return true
}

func (s *SlackChannel) shouldRespond(evType, text, channelID string) bool {
	switch s.cfg.GroupPolicy {
	case "open":
		return true
	case "mention":
		if evType == "app_mention" {
			return true
		}
		return s.botUserID != "" && strings.Contains(text, "<@"+s.botUserID+">")
	case "allowlist":
		return slices.Contains(s.cfg.GroupAllowFrom, channelID)
	}
	return false
}

func (s *SlackChannel) send(ctx context.Context, text string) error {
	s.mu.Lock()
	target := s.lastActive
	s.mu.Unlock()
	if target == "" {
		slog.Debug("slack: nobody has spoken yet, dropping message")
		return nil
	}
	if _, _, err := s.webClient.PostMessageContext(ctx, target, slackgo.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
