package bot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	tele "gopkg.in/telebot.v4"

	tg "elpbot/core/telegram"
	"elpbot/core/telegram/keyboard"
	"elpbot/internal/conversation"
	"elpbot/internal/knowledge"
	"elpbot/internal/leads"
)

const adminID = int64(1001)

var (
	client = &tele.User{ID: 42, Username: "aigul", FirstName: "Айгуль"}
	admin  = &tele.User{ID: adminID, FirstName: "Admin"}
)

type harness struct {
	bot      *Bot
	reg      *tg.Registry
	routes   []tg.Route
	store    *fakeLeads
	notifier *fakeNotifier
	nextID   int
}

func newHarness(t *testing.T, enabled bool) *harness {
	t.Helper()
	store := &fakeLeads{enabled: enabled}
	n := &fakeNotifier{}
	machine := conversation.New(nil, NewSubmitter(store, n))
	b := New(Deps{
		Machine:   machine,
		Leads:     store,
		Knowledge: knowledge.New(knowledge.Broker{Phone: "+7 727 000 00 00", Email: "broker@elp.kz"}),
		AdminID:   adminID,
		Now:       func() time.Time { return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(b.Close)
	reg := tg.NewRegistry()
	require.NoError(t, b.Register(reg))
	return &harness{bot: b, reg: reg, routes: b.Routes(reg), store: store, notifier: n}
}

func (h *harness) route(t *testing.T, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range h.routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

// activity waits for queued button presses to reach the store.
func (h *harness) activity() []string {
	h.bot.activity.flush()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]string(nil), h.store.activity...)
}

func (h *harness) id() int {
	h.nextID++
	return h.nextID
}

func (h *harness) press(t *testing.T, u *tele.User, key string) *fakeContext {
	t.Helper()
	c := newCallback(h.id(), u, key)
	require.NoError(t, h.route(t, tele.OnCallback)(c))
	return c
}

func (h *harness) say(t *testing.T, u *tele.User, text string) *fakeContext {
	t.Helper()
	c := newText(h.id(), u, text)
	require.NoError(t, h.route(t, tele.OnText)(c))
	return c
}

func (h *harness) command(t *testing.T, u *tele.User, cmd string) *fakeContext {
	t.Helper()
	c := newText(h.id(), u, cmd)
	require.NoError(t, h.route(t, cmd)(c))
	return c
}

func TestLeadFlowWithSharedPhone(t *testing.T) {
	h := newHarness(t, true)

	c := h.press(t, client, KeyStartRequest)
	assert.Equal(t, 1, c.responded)
	assert.Contains(t, c.last().text(), "Шаг 1 из 4")
	assert.Equal(t, [][]string{{"area_500", "area_1000"}, {"area_3000", "area_5000"}, {KeyCancel}}, keyboard.Keys(c.last().markup()))

	c = h.press(t, client, "area_1000")
	assert.Contains(t, c.last().text(), "Шаг 2 из 4")

	c = h.press(t, client, "term_12")
	assert.Contains(t, c.last().text(), "Шаг 3 из 4")

	c = h.say(t, client, "Айгуль")
	assert.Contains(t, c.last().text(), "Шаг 4 из 4")

	c = h.press(t, client, KeySendPhone)
	require.NotNil(t, c.last().markup())
	assert.False(t, c.last().edit, "reply keyboard needs a new message")
	require.Len(t, c.last().markup().ReplyKeyboard, 1)
	assert.True(t, c.last().markup().ReplyKeyboard[0][0].Contact)

	c = newContact(h.id(), client, "+77011234567")
	require.NoError(t, h.route(t, tele.OnContact)(c))
	require.Len(t, c.out, 2)
	assert.Contains(t, c.out[0].text(), "#1")
	assert.True(t, c.out[0].markup().RemoveKeyboard)

	require.Len(t, h.store.stored, 1)
	require.Len(t, h.notifier.calls, 1)
	stored := h.store.stored[0]
	assert.Equal(t, "500–1 000 м²", stored.Area)
	assert.Equal(t, "6–12 месяцев", stored.Term)
	assert.Equal(t, "Айгуль", stored.Name)
	assert.Equal(t, "+77011234567", stored.Contact)
	assert.Equal(t, leads.ContactPhone, stored.ContactKind)
	assert.Equal(t, "aigul", stored.Username)
	assert.Equal(t, leads.StatusNew, stored.Status)

	note := h.notifier.calls[0]
	assert.Equal(t, "#1", note.ref.String())
	assert.Equal(t, stored.Name, note.lead.Name)
	assert.Equal(t, stored.Contact, note.lead.Contact)
	assert.Equal(t, stored.Area, note.lead.Area)
	assert.Equal(t, stored.Term, note.lead.Term)
	assert.False(t, h.bot.InProgress(client.ID))

	assert.Equal(t, []string{KeyStartRequest, "area_1000", "term_12", KeySendPhone}, h.activity())
}

func TestLeadFlowWithoutStoreUsesPlaceholder(t *testing.T) {
	h := newHarness(t, false)
	h.press(t, client, KeyStartRequest)
	h.press(t, client, "area_500")
	h.press(t, client, "term_6")
	h.say(t, client, "Иван")
	h.press(t, client, KeySendEmail)

	c := h.say(t, client, "ivan@example.kz")
	require.NotEmpty(t, c.out)
	assert.Contains(t, c.out[0].text(), "#T")
	require.Len(t, h.notifier.calls, 1)
	assert.False(t, h.notifier.calls[0].ref.Durable())
	assert.Equal(t, leads.ContactEmail, h.notifier.calls[0].lead.ContactKind)
}

func TestBackToTermFromContactShowsNamePrompt(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, client, KeyStartRequest)
	h.press(t, client, "area_500")
	h.press(t, client, "term_6")
	h.say(t, client, "Иван")

	c := h.press(t, client, KeyBackToTerm)
	assert.Contains(t, c.last().text(), "Шаг 3 из 4")

	c = h.press(t, client, KeyBackToTerm)
	assert.Contains(t, c.last().text(), "Шаг 2 из 4")
}

func TestTextDuringSelectionShowsHint(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, client, KeyStartRequest)
	c := h.say(t, client, "большой склад")
	assert.Contains(t, c.last().text(), "выберите вариант кнопкой")
	assert.Contains(t, c.last().text(), "Шаг 1 из 4")
	assert.Empty(t, h.store.stored)
}

func TestCancelWithPhoneKeyboardRemovesIt(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, client, KeyStartRequest)
	h.press(t, client, "area_500")
	h.press(t, client, "term_6")
	h.say(t, client, "Иван")
	h.press(t, client, KeySendPhone)

	c := h.press(t, client, KeyCancel)
	require.Len(t, c.out, 2)
	assert.True(t, c.out[0].markup().RemoveKeyboard)
	assert.False(t, h.bot.InProgress(client.ID))
}

func TestCancelCommandClearsForm(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, client, KeyStartRequest)
	h.press(t, client, "area_500")

	c := h.command(t, client, "/cancel")
	assert.Contains(t, c.last().text(), "Заявка отменена")
	assert.False(t, h.bot.InProgress(client.ID))

	h.press(t, client, KeyStartRequest)
	st, ok := h.bot.machine.Current(client.ID)
	require.True(t, ok)
	assert.Empty(t, st.Form.Area)
}

func TestStartClearsForm(t *testing.T) {
	h := newHarness(t, true)
	h.press(t, client, KeyStartRequest)
	c := h.command(t, client, "/start")
	assert.Contains(t, c.last().text(), "Евразийский Логистический Парк")
	assert.False(t, h.bot.InProgress(client.ID))
}

func TestFreeTextOutsideForm(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		keys [][]string
	}{
		{"fallback", "qwerty", fallbackText, nil},
		{"greeting", "Привет", "Здравствуйте", nil},
		{"thanks", "спасибо!", "Рады помочь", nil},
		{"topic", "какая цена?", "5 500 ₸/м²", [][]string{{KeyStartRequest, KeyWriteEmail}, {KeyMainMenu}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			c := h.say(t, client, tt.text)
			require.Len(t, c.out, 1)
			assert.Contains(t, c.out[0].text(), tt.want)
			keys := tt.keys
			if keys == nil {
				keys = keyboard.Keys(mainMenuKeyboard())
			}
			assert.Equal(t, keys, keyboard.Keys(c.out[0].markup()))
		})
	}
}

func TestMainMenuLayout(t *testing.T) {
	assert.Equal(t, [][]string{
		{"area", "price"},
		{"location", "specs"},
		{"contact", "timeline"},
		{KeyStartRequest},
	}, keyboard.Keys(mainMenuKeyboard()))
}

func TestContactOutsideFormShowsMenu(t *testing.T) {
	h := newHarness(t, true)
	c := newContact(h.id(), client, "+7701")
	require.NoError(t, h.route(t, tele.OnContact)(c))
	assert.Equal(t, menuText, c.last().text())
	assert.Empty(t, h.store.stored)
}

func TestTopicCallbacks(t *testing.T) {
	h := newHarness(t, true)
	for _, topic := range knowledge.Topics() {
		c := h.press(t, client, string(topic))
		want, _ := h.bot.kb.Text(topic)
		assert.Equal(t, want, c.last().text(), topic)
		assert.True(t, c.last().edit)
		kb := keyboard.Keys(c.last().markup())
		assert.Equal(t, []string{KeyMainMenu}, kb[len(kb)-1])
	}
	assert.Len(t, h.activity(), len(knowledge.Topics()))
}

func TestFixedCallbacks(t *testing.T) {
	h := newHarness(t, true)
	c := h.press(t, client, KeyWriteEmail)
	assert.Contains(t, c.last().text(), "broker@elp.kz")

	c = h.press(t, client, KeyScheduleTour)
	assert.Contains(t, c.last().text(), "+7 727 000 00 00")
}

func TestSlowActivityStoreDoesNotDelayPress(t *testing.T) {
	h := newHarness(t, true)
	h.store.block = make(chan struct{})

	c := h.press(t, client, KeyStartRequest)
	assert.Equal(t, 1, c.responded)
	assert.Contains(t, c.last().text(), "Шаг 1 из 4")

	close(h.store.block)
	assert.Equal(t, []string{KeyStartRequest}, h.activity())
}

func TestActivityAfterCloseIsIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.bot.Close()
	h.press(t, client, "price")
	assert.Empty(t, h.activity())
}

func TestUnknownCallbackIsAnsweredOnly(t *testing.T) {
	h := newHarness(t, true)
	c := h.press(t, client, "nope")
	assert.GreaterOrEqual(t, c.responded, 1)
	assert.Empty(t, c.out)
	assert.Equal(t, []string{"nope"}, h.activity())
}

func TestAdminCommandsRejectOthersSilently(t *testing.T) {
	h := newHarness(t, true)
	for _, cmd := range []string{"/stats", "/leads", "/export", "/dashboard"} {
		c := h.command(t, client, cmd)
		assert.Empty(t, c.out, cmd)
	}
	assert.Empty(t, h.store.limits)
}

func TestAdminIDZeroRejectsEveryone(t *testing.T) {
	b := New(Deps{Leads: &fakeLeads{enabled: true}})
	reg := tg.NewRegistry()
	require.NoError(t, b.Register(reg))
	h := &harness{bot: b, reg: reg, routes: b.Routes(reg)}

	c := h.command(t, &tele.User{ID: 0}, "/stats")
	assert.Empty(t, c.out)
}

func sampleLeads() []leads.Lead {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []leads.Lead{
		{ID: 3, UserID: 42, Username: "aigul", Name: "Айгуль", Contact: "+7701", ContactKind: leads.ContactPhone, Area: "до 500 м²", Term: "1–3 года", Status: leads.StatusNew, CreatedAt: at},
		{ID: 2, UserID: 43, Name: "<Иван>", Contact: "ivan@example.kz", ContactKind: leads.ContactEmail, Area: "более 3 000 м²", Term: "более 3 лет", Status: leads.StatusContacted, CreatedAt: at.Add(-time.Hour)},
	}
}

func TestStatsForAdmin(t *testing.T) {
	h := newHarness(t, true)
	h.store.stats = leads.Stats{Total: 4, Today: 4, New: 3, Contacted: 1}
	h.store.recent = sampleLeads()

	c := h.command(t, admin, "/stats")
	text := c.last().text()
	for _, want := range []string{"Всего заявок: 4", "Сегодня: 4", "Новые: 3", "В работе: 1", "#3", "&lt;Иван&gt;"} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, []int{statsRecent}, h.store.limits)
}

func TestStatsWithoutStore(t *testing.T) {
	h := newHarness(t, false)
	c := h.command(t, admin, "/stats")
	assert.Contains(t, c.last().text(), "Всего заявок: 0")
	assert.Contains(t, c.last().text(), storeDisabledText)
}

func TestLeadsForAdmin(t *testing.T) {
	h := newHarness(t, true)
	h.store.recent = sampleLeads()
	c := h.command(t, admin, "/leads")
	text := c.last().text()
	assert.Contains(t, text, "(2)")
	assert.Contains(t, text, "@aigul")
	assert.Contains(t, text, "в работе")
	assert.Equal(t, []int{leadsRecent}, h.store.limits)
}

func TestDashboardForAdmin(t *testing.T) {
	h := newHarness(t, true)
	h.store.stats = leads.Stats{Total: 2, New: 2}
	c := h.command(t, admin, "/dashboard")
	assert.Contains(t, c.last().text(), "Панель управления ELP Bot")
	assert.Contains(t, c.last().text(), "/export")
}

func TestExportSendsWorkbook(t *testing.T) {
	h := newHarness(t, true)
	h.store.recent = sampleLeads()
	c := h.command(t, admin, "/export")

	doc, ok := c.last().what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "elp_leads_20250602_1000.xlsx", doc.FileName)
	assert.Contains(t, doc.Caption, "2")
	assert.Equal(t, []int{exportLimit}, h.store.limits)
}

func TestExportEmpty(t *testing.T) {
	h := newHarness(t, true)
	c := h.command(t, admin, "/export")
	assert.Contains(t, c.last().text(), "Нет заявок")
}

func TestBuildWorkbook(t *testing.T) {
	buf, err := BuildWorkbook(sampleLeads())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, []string{"3", "01.06.2025 12:00", "Айгуль", "+7701", "телефон", "до 500 м²", "1–3 года", "новая", "aigul", "42"}, rows[1])
	assert.Equal(t, "в работе", rows[2][7])
}

func TestSubmitterNotifiesOnce(t *testing.T) {
	store := &fakeLeads{enabled: true}
	n := &fakeNotifier{}
	lead, ref := NewSubmitter(store, n).Submit(context.Background(), leads.Lead{Name: "x"})
	assert.Equal(t, int64(1), lead.ID)
	assert.True(t, ref.Durable())
	assert.Len(t, n.calls, 1)

	_, ref = NewSubmitter(nil, nil).Submit(context.Background(), leads.Lead{CreatedAt: time.Unix(1760440000, 0)})
	assert.Equal(t, "#T1760440000", ref.String())
}

func TestCommandMenus(t *testing.T) {
	h := newHarness(t, true)
	var public []string
	for _, c := range h.reg.ListCommands(true) {
		public = append(public, c.Text)
	}
	assert.Equal(t, []string{"cancel", "start"}, public)
	assert.Len(t, h.reg.ListCommands(false), 6)
}

func TestCommandWordsAreFormInput(t *testing.T) {
	for _, word := range []string{"start", "menu", "cancel"} {
		t.Run(word, func(t *testing.T) {
			h := newHarness(t, true)
			h.press(t, client, KeyStartRequest)
			h.press(t, client, "area_500")
			h.press(t, client, "term_12")

			c := h.say(t, client, word)
			assert.Contains(t, c.last().text(), "Шаг 4 из 4")
			st, ok := h.bot.machine.Current(client.ID)
			require.True(t, ok)
			assert.Equal(t, conversation.StepAwaitingContact, st.Step)
			assert.Equal(t, word, st.Form.Name)

			h.say(t, client, word)
			require.Len(t, h.store.stored, 1)
			assert.Equal(t, word, h.store.stored[0].Name)
			assert.Equal(t, word, h.store.stored[0].Contact)
			assert.Equal(t, leads.ContactUnspecified, h.store.stored[0].ContactKind)
		})
	}
}
