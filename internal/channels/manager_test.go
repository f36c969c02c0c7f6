package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectlily/lily/internal/config/channel"
	"github.com/projectlily/lily/internal/schema"
)

type stubIntegration struct {
	name string
	err  error
}

func (s *stubIntegration) Name() string { return s.name }

func (s *stubIntegration) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestManagerBuildsEnabledIntegrations(t *testing.T) {
	cfg := channel.DefaultChannelsConfig()
	cfg.Transcript.Enabled = true
	cfg.Discord.Enabled = true
	cfg.Discord.Token = "t"

	m := NewManager(&cfg, NewRouter(), ManagerOptions{
		TranscriptPath: t.TempDir() + "/t.jsonl",
		Extra:          []schema.Integration{&stubIntegration{name: "cron"}, nil},
	})
	assert.Equal(t, []string{"discord", "transcript", "cron"}, m.EnabledChannels())
}

func TestManagerStartAllSwallowsIntegrationErrors(t *testing.T) {
	cfg := channel.ChannelsConfig{}
	m := NewManager(&cfg, NewRouter(), ManagerOptions{
		Extra: []schema.Integration{
			&stubIntegration{name: "broken", err: errors.New("boom")},
			&stubIntegration{name: "steady"},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.StartAll(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("StartAll did not return after cancel")
	}
}
