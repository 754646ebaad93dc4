package bot

import (
	"context"
	"sync"

	tele "gopkg.in/telebot.v4"

	"elpbot/internal/leads"
	"elpbot/internal/notify"
)

type sent struct {
	what interface{}
	opts []interface{}
	edit bool
}

func (s sent) text() string {
	t, _ := s.what.(string)
	return t
}

func (s sent) markup() *tele.ReplyMarkup {
	for _, o := range s.opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			return v.ReplyMarkup
		case *tele.ReplyMarkup:
			return v
		}
	}
	return nil
}

// fakeContext implements the slice of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	update    tele.Update
	values    map[string]interface{}
	out       []sent
	responded int
}

func newText(updateID int, user *tele.User, text string) *fakeContext {
	return &fakeContext{update: tele.Update{ID: updateID, Message: &tele.Message{
		ID:     updateID,
		Text:   text,
		Sender: user,
		Chat:   &tele.Chat{ID: user.ID, Type: tele.ChatPrivate},
	}}}
}

func newContact(updateID int, user *tele.User, phone string) *fakeContext {
	c := newText(updateID, user, "")
	c.update.Message.Contact = &tele.Contact{PhoneNumber: phone, UserID: user.ID}
	return c
}

func newCallback(updateID int, user *tele.User, key string) *fakeContext {
	return &fakeContext{update: tele.Update{ID: updateID, Callback: &tele.Callback{
		ID:      "cb",
		Data:    "\f" + key,
		Sender:  user,
		Message: &tele.Message{ID: 7, Chat: &tele.Chat{ID: user.ID, Type: tele.ChatPrivate}},
	}}}
}

func (f *fakeContext) Update() tele.Update { return f.update }

func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func (f *fakeContext) Message() *tele.Message {
	if f.update.Message != nil {
		return f.update.Message
	}
	if f.update.Callback != nil {
		return f.update.Callback.Message
	}
	return nil
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
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if m := f.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.out = append(f.out, sent{what: what, opts: opts})
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	f.out = append(f.out, sent{what: what, opts: opts, edit: true})
	return nil
}

func (f *fakeContext) Respond(_ ...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

func (f *fakeContext) Get(key string) interface{} { return f.values[key] }

func (f *fakeContext) Set(key string, v interface{}) {
	if f.values == nil {
		f.values = make(map[string]interface{})
	}
	f.values[key] = v
}

func (f *fakeContext) last() sent {
	if len(f.out) == 0 {
		return sent{}
	}
	return f.out[len(f.out)-1]
}

type fakeLeads struct {
	mu       sync.Mutex
	enabled  bool
	stats    leads.Stats
	recent   []leads.Lead
	limits   []int
	activity []string
	stored   []leads.Lead
	block    chan struct{}
}

func (f *fakeLeads) Enabled() bool { return f.enabled }

func (f *fakeLeads) InsertActivity(_ context.Context, _ int64, action, _ string) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, action)
}

func (f *fakeLeads) AggregateStats(context.Context) leads.Stats { return f.stats }

func (f *fakeLeads) RecentLeads(_ context.Context, limit int) []leads.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	if len(f.recent) > limit {
		return f.recent[:limit]
	}
	return f.recent
}

func (f *fakeLeads) Submit(_ context.Context, lead leads.Lead) (leads.Lead, leads.Ref) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return lead, leads.PlaceholderRef(lead.CreatedAt)
	}
	f.stored = append(f.stored, lead)
	lead.ID = int64(len(f.stored))
	return lead, leads.DurableRef(lead.ID)
}

type notified struct {
	lead leads.Lead
	ref  leads.Ref
}

type fakeNotifier struct {
	calls []notified
}

func (f *fakeNotifier) Notify(_ context.Context, lead leads.Lead, ref leads.Ref) notify.Result {
	f.calls = append(f.calls, notified{lead: lead, ref: ref})
	return notify.Result{EmailStatus: notify.EmailDisabled, AdminSent: true}
}
