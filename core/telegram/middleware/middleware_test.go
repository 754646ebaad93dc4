package middleware

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"elpbot/core/logger"
	tghelpers "elpbot/core/telegram/helpers"
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	values    map[string]interface{}
	sendErr   error
	mu        sync.Mutex
	sent      int
	responded int
}

func textUpdate(id int, userID int64, text string) *fakeContext {
	return &fakeContext{update: tele.Update{ID: id, Message: &tele.Message{
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
	}}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}
func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}
func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}
func (f *fakeContext) Get(key string) interface{} { return f.values[key] }
func (f *fakeContext) Set(key string, v interface{}) {
	if f.values == nil {
		f.values = map[string]interface{}{}
	}
	f.values[key] = v
}
func (f *fakeContext) Send(interface{}, ...interface{}) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	return nil
}
func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return f.Send(what, opts...)
}
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

func TestMessageMetricsCountsReplies(t *testing.T) {
	c := textUpdate(1, 10, "hi")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		require.NoError(t, c.Send("plain"))
		return c.EditOrSend("menu", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
	})
	require.NoError(t, h(c))

	msgs, kb := Counters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
	assert.Equal(t, 2, c.sent)
}

func TestMessageMetricsSkipsFailedSends(t *testing.T) {
	c := textUpdate(1, 10, "hi")
	c.sendErr = errors.New("blocked")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		return c.Send("x", &tele.ReplyMarkup{})
	})
	assert.Error(t, h(c))

	msgs, kb := Counters(c)
	assert.Zero(t, msgs)
	assert.False(t, kb)
}

func TestMessageMetricsCountsWorkerSends(t *testing.T) {
	c := textUpdate(1, 10, "hi")
	var wg sync.WaitGroup
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(markup bool) {
				defer wg.Done()
				if markup {
					_ = c.Send("menu", &tele.ReplyMarkup{})
					return
				}
				_ = c.Send("plain")
			}(i == 3)
		}
		return nil
	})
	require.NoError(t, h(c))
	wg.Wait()

	msgs, kb := Counters(c)
	assert.Equal(t, 8, msgs)
	assert.True(t, kb)
}

func TestCountersWithoutMiddleware(t *testing.T) {
	msgs, kb := Counters(textUpdate(1, 10, ""))
	assert.Zero(t, msgs)
	assert.False(t, kb)
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name     string
		adminID  int64
		sender   int64
		wantNext bool
	}{
		{"admin", 7, 7, true},
		{"stranger", 7, 8, false},
		{"not configured", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached, rejected bool
			h := AdminOnlyMiddleware(AdminOptions{
				AdminID:  tt.adminID,
				OnReject: func(tele.Context) error { rejected = true; return nil },
			})(func(tele.Context) error { reached = true; return nil })

			require.NoError(t, h(textUpdate(1, tt.sender, "/stats")))
			assert.Equal(t, tt.wantNext, reached)
			assert.Equal(t, !tt.wantNext, rejected)
		})
	}
}

func TestRecoverAnswersCallback(t *testing.T) {
	c := &fakeContext{update: tele.Update{ID: 3, Callback: &tele.Callback{
		Data:   "\fprice",
		Sender: &tele.User{ID: 5},
	}}}
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })

	assert.NoError(t, h(c))
	assert.Equal(t, 1, c.responded)
}

func TestRateLimitDropsBurst(t *testing.T) {
	var calls, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	require.NoError(t, h(textUpdate(1, 10, "a")))
	require.NoError(t, h(textUpdate(2, 10, "b")))
	require.NoError(t, h(textUpdate(3, 11, "c")))
	cb := &fakeContext{update: tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 10}}}}
	require.NoError(t, h(cb))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)
}

func TestLoggerMiddlewareBindsContext(t *testing.T) {
	c := textUpdate(42, 9, "hello")
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		rid = logger.RIDFrom(ctx)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "42:9:9", rid)
}

func TestSeenUpdatesWindow(t *testing.T) {
	s := &seenUpdates{ttl: time.Minute, seen: map[int]time.Time{}}
	now := time.Now()
	assert.True(t, s.first(1, now))
	assert.False(t, s.first(1, now.Add(time.Second)))
	assert.True(t, s.first(1, now.Add(2*time.Minute)))
}
