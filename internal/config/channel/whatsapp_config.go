package channel

// WhatsAppConfig configures the WhatsApp integration, which talks to a
// Node.js bridge over a websocket.
type WhatsAppConfig struct {
	Enabled     bool     `json:"enabled"`
	BridgeURL   string   `json:"bridgeUrl" env:"WHATSAPP_BRIDGE_URL"`
	BridgeToken string   `json:"bridgeToken" env:"WHATSAPP_BRIDGE_TOKEN"`
	AllowFrom   []string `json:"allowFrom"`
	LogAll      bool     `json:"logAll"`
}

func DefaultWhatsAppConfig() WhatsAppConfig {
	return WhatsAppConfig{BridgeURL: "ws://localhost:3001", AllowFrom: []string{}}
}
