package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/config/channel"
)

const whatsappReconnectDelay = 5 * time.Second

// bridgeFrame is the JSON frame exchanged with the Node.js Baileys bridge.
type bridgeFrame struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	ID       string `json:"id,omitempty"`
	Sender   string `json:"sender,omitempty"`
	PN       string `json:"pn,omitempty"`
	PushName string `json:"pushName,omitempty"`
	Content  string `json:"content,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WhatsAppChannel connects to the Node.js Baileys bridge via WebSocket. The
// agent replies to the last chat that wrote to it.
type WhatsAppChannel struct {
	Base
	cfg    *channel.WhatsAppConfig
	router *Router

	mu       sync.Mutex
	conn     *websocket.Conn
	lastChat string
}

func NewWhatsAppChannel(cfg *channel.WhatsAppConfig, router *Router) *WhatsAppChannel {
	return &WhatsAppChannel{
		Base:   NewBase(string(bus.ChannelWhatsApp), cfg.AllowFrom, WithLogAll(cfg.LogAll)),
		cfg:    cfg,
		router: router,
	}
}

func (w *WhatsAppChannel) Start(ctx context.Context) error {
	bridgeURL := w.cfg.BridgeURL
	if bridgeURL == "" {
		bridgeURL = "ws://localhost:3001"
	}

	ep := w.router.OpenTwoWay(w.Name())
	defer ep.Close()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.bridgeLoop(runCtx, bridgeURL, ep.Out)
	}()

	err := w.Relay(ctx, ep.In, w.send)
	cancel()
	wg.Wait()
	return err
}

func (w *WhatsAppChannel) bridgeLoop(ctx context.Context, url string, out *bus.Sender) {
	slog.Info("whatsapp: connecting to bridge", "url", url)
	for {
		if err := w.connectOnce(ctx, url, out); err != nil && ctx.Err() == nil {
			slog.Warn("whatsapp: connection lost, reconnecting", "err", err, "delay", whatsappReconnectDelay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(whatsappReconnectDelay):
		}
	}
}

func (w *WhatsAppChannel) connectOnce(ctx context.Context, url string, out *bus.Sender) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.conn = nil
		w.mu.Unlock()
		conn.Close()
	}()

	slog.Info("whatsapp: connected to bridge")
	if w.cfg.BridgeToken != "" {
		if err := w.write(bridgeFrame{Type: "auth", Token: w.cfg.BridgeToken}); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}

	for {
		var frame bridgeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		w.handleFrame(ctx, out, frame)
	}
}

func (w *WhatsAppChannel) handleFrame(ctx context.Context, out *bus.Sender, f bridgeFrame) {
	switch f.Type {
	case "message":
		userID := f.PN
		if userID == "" {
			userID = f.Sender
		}
		senderID, _, _ := strings.Cut(userID, "@")

		content := f.Content
		if content == "[Voice Message]" {
			content = "[Voice Message: Transcription not available for WhatsApp yet]"
		}
		chatID := f.Sender
		if chatID == "" {
			chatID = userID
		}
		if w.HandleMessage(ctx, out, senderID, f.PushName, content) {
			w.mu.Lock()
			w.lastChat = chatID
			w.mu.Unlock()
		}
	case "status":
		slog.Info("whatsapp: status", "status", f.Status)
	case "qr":
		slog.Info("whatsapp: scan QR code in the bridge terminal")
	case "error":
		slog.Error("whatsapp: bridge error", "error", f.Error)
	}
}

func (w *WhatsAppChannel) write(f bridgeFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return errors.New("whatsapp: bridge not connected")
	}
	return w.conn.WriteJSON(f)
}

func (w *WhatsAppChannel) send(_ context.Context, text string) error {
	w.mu.Lock()
	to := w.lastChat
	w.mu.Unlock()
	if to == "" {
		slog.Debug("whatsapp: no chat yet, dropping message")
		return nil
	}
	return w.write(bridgeFrame{Type: "send", To: to, Text: text})
}
