package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/projectlily/lily/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func userMsg(text string) schema.Message {
	return schema.NewUserMessage("tester", text)
}

func TestPipeFIFO(t *testing.T) {
	tx, rx := NewPipe("p", 4)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, tx.Send(ctx, userMsg(s)))
	}

	msgs, err := rx.Drain()
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "a", msgs[0].Text())
	assert.Equal(t, "b", msgs[1].Text())
	assert.Equal(t, "c", msgs[2].Text())

	msgs, err = rx.Drain()
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPipeTrySendFull(t *testing.T) {
	tx, _ := NewPipe("p", 1)
	require.NoError(t, tx.TrySend(userMsg("one")))
	assert.ErrorIs(t, tx.TrySend(userMsg("two")), ErrFull)
}

func TestPipeSenderCloseDrainsThenEndOfStream(t *testing.T) {
	tx, rx := NewPipe("p", 4)
	require.NoError(t, tx.TrySend(userMsg("last words")))
	tx.Close()
	tx.Close()

	assert.ErrorIs(t, tx.TrySend(userMsg("late")), ErrClosed)

	msgs, err := rx.Drain()
	assert.ErrorIs(t, err, ErrEndOfStream)
	require.Len(t, msgs, 1)
	assert.Equal(t, "last words", msgs[0].Text())

	_, err = rx.TryReceive()
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestPipeReceiverCloseFailsSends(t *testing.T) {
	tx, rx := NewPipe("p", 4)
	rx.Close()

	assert.True(t, tx.Closed())
	assert.ErrorIs(t, tx.Send(context.Background(), userMsg("x")), ErrClosed)
	assert.ErrorIs(t, tx.TrySend(userMsg("x")), ErrClosed)
}

func TestPipeSendBlocksUntilContextDone(t *testing.T) {
	tx, _ := NewPipe("p", 1)
	require.NoError(t, tx.TrySend(userMsg("fill")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tx.Send(ctx, userMsg("blocked")), context.DeadlineExceeded)
}

func TestPipeReceiveWakesOnSend(t *testing.T) {
	tx, rx := NewPipe("p", 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_ = tx.Send(context.Background(), userMsg("wake"))
	}()

	m, err := rx.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wake", m.Text())
	wg.Wait()
}

func TestPipeReceiveEndOfStream(t *testing.T) {
	tx, rx := NewPipe("p", 1)
	tx.Close()

	_, err := rx.Receive(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestPipeConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	tx, rx := NewPipe("p", 256)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, who := range []string{"a", "b"} {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = tx.Send(ctx, schema.NewUserMessage(who, string(rune('0'+i%10))))
			}
		}(who)
	}
	wg.Wait()

	msgs, err := rx.Drain()
	require.NoError(t, err)
	require.Len(t, msgs, 100)

	next := map[string]int{}
	for _, m := range msgs {
		i := next[m.Username()]
		assert.Equal(t, string(rune('0'+i%10)), m.Text())
		next[m.Username()] = i + 1
	}
}
