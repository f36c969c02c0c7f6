package channels

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/projectlily/lily/internal/bus"
	"github.com/projectlily/lily/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func texts(msgs []schema.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Username() + ":" + m.Text()
	}
	return out
}

// ─── Drain ───────────────────────────────────────────────────────────────────

func TestRouterDrainTwiceReturnsNothingNew(t *testing.T) {
	r := NewRouter()
	ext := r.OpenTwoWay("discord")
	require.NoError(t, ext.Out.TrySend(schema.NewUserMessage("a", "1")))

	assert.Len(t, r.DrainInbound(), 1)
	assert.Empty(t, r.DrainInbound())
}

func TestRouterDrainKeepsPerChannelOrder(t *testing.T) {
	r := NewRouter()
	a := r.OpenInbound("a")
	b := r.OpenTwoWay("b")
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, schema.NewUserMessage("a", "1")))
	require.NoError(t, b.Out.Send(ctx, schema.NewUserMessage("b", "1")))
	require.NoError(t, a.Send(ctx, schema.NewUserMessage("a", "2")))
	require.NoError(t, b.Out.Send(ctx, schema.NewUserMessage("b", "2")))

	got := texts(r.DrainInbound())
	require.Len(t, got, 4)

	var fromA, fromB []string
	for _, s := range got {
		if s[0] == 'a' {
			fromA = append(fromA, s)
		} else {
			fromB = append(fromB, s)
		}
	}
	if diff := cmp.Diff([]string{"a:1", "a:2"}, fromA); diff != "" {
		t.Errorf("channel a order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b:1", "b:2"}, fromB); diff != "" {
		t.Errorf("channel b order (-want +got):\n%s", diff)
	}

	require.NoError(t, a.Send(ctx, schema.NewUserMessage("a", "3")))
	assert.Equal(t, []string{"a:3"}, texts(r.DrainInbound()))
}

func TestRouterDrainBothChannels(t *testing.T) {
	r := NewRouter()
	a := r.OpenInbound("a")
	b := r.OpenInbound("b")
	require.NoError(t, a.TrySend(schema.NewUserMessage("a", "hi")))
	require.NoError(t, b.TrySend(schema.NewUserMessage("b", "hey")))

	assert.ElementsMatch(t, []string{"a:hi", "b:hey"}, texts(r.DrainInbound()))
}

func TestRouterDrainSkipsClosedChannel(t *testing.T) {
	r := NewRouter()
	closed := r.OpenInbound("gone")
	open := r.OpenInbound("alive")

	require.NoError(t, closed.TrySend(schema.NewUserMessage("gone", "bye")))
	closed.Close()
	require.NoError(t, open.TrySend(schema.NewUserMessage("alive", "hi")))

	assert.ElementsMatch(t, []string{"gone:bye", "alive:hi"}, texts(r.DrainInbound()))
	assert.Equal(t, []string{bus.ToAgent("alive")}, r.Channels())

	require.NoError(t, open.TrySend(schema.NewUserMessage("alive", "again")))
	assert.Equal(t, []string{"alive:again"}, texts(r.DrainInbound()))
}

// ─── Broadcast ───────────────────────────────────────────────────────────────

func TestRouterBroadcastReachesEveryOpenChannel(t *testing.T) {
	r := NewRouter()
	two := r.OpenTwoWay("discord")
	out := r.OpenOutbound("transcript")
	dead := r.OpenOutbound("dead")
	dead.Close()

	msg := schema.NewAssistantMessage(schema.Say, "hello")
	report := r.Broadcast(context.Background(), msg)

	assert.Equal(t, []string{bus.ToExternal("discord"), bus.ToExternal("transcript")}, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bus.ToExternal("dead"), report.Failed[0].Channel)
	assert.ErrorIs(t, report.Err(), bus.ErrClosed)

	got, err := two.In.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text())

	got, err = out.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text())

	report = r.Broadcast(context.Background(), msg)
	assert.Empty(t, report.Failed)
	assert.NoError(t, report.Err())
}

func TestRouterBroadcastFullChannelDoesNotBlockOthers(t *testing.T) {
	r := NewRouter(WithCapacity(1), WithSendTimeout(10*time.Millisecond))
	slow := r.OpenOutbound("slow")
	fast := r.OpenOutbound("fast")

	first := r.Broadcast(context.Background(), schema.NewAssistantMessage(schema.Say, "1"))
	assert.Len(t, first.Delivered, 2)

	_, err := fast.TryReceive()
	require.NoError(t, err)

	second := r.Broadcast(context.Background(), schema.NewAssistantMessage(schema.Say, "2"))
	assert.Equal(t, []string{bus.ToExternal("fast")}, second.Delivered)
	require.Len(t, second.Failed, 1)
	assert.ErrorIs(t, second.Failed[0].Err, context.DeadlineExceeded)

	m, err := slow.TryReceive()
	require.NoError(t, err)
	assert.Equal(t, "1", m.Text())
}

func TestRouterCloseEndsExternalStreams(t *testing.T) {
	r := NewRouter()
	ext := r.OpenTwoWay("cli")
	r.Close()

	_, err := ext.In.Receive(context.Background())
	assert.ErrorIs(t, err, bus.ErrEndOfStream)
	assert.ErrorIs(t, ext.Out.TrySend(schema.NewUserMessage("u", "x")), bus.ErrClosed)
	assert.Empty(t, r.Channels())
}
