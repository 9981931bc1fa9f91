package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/avisohq/aviso-console/internal/backend"
)

// mockBackend implements Backend with per-operation hooks and call counters.
type mockBackend struct {
	dashboardFn func(ctx context.Context) (*backend.DashboardData, error)
	templatesFn func(ctx context.Context) ([]backend.Template, error)
	createFn    func(ctx context.Context, in backend.TemplateInput) (*backend.Template, error)
	updateFn    func(ctx context.Context, id int64, in backend.TemplateInput) (*backend.Template, error)
	typesFn     func(ctx context.Context) ([]backend.NotificationType, error)
	channelsFn  func(ctx context.Context) ([]backend.ChannelOption, error)
	eventsFn    func(ctx context.Context) ([]backend.Event, error)
	sendFn      func(ctx context.Context, req backend.DispatchRequest) error
	historyFn   func(ctx context.Context, f backend.HistoryFilters) ([]backend.NotificationRecord, error)
	exportFn    func(ctx context.Context, format backend.ExportFormat, f backend.HistoryFilters) (*backend.Export, error)
	configFn    func(ctx context.Context) (*backend.ChannelConfig, error)
	updConfigFn func(ctx context.Context, cfg backend.ChannelConfigUpdate) error
	testFn      func(ctx context.Context, canal backend.Canal, recipient string) (*backend.TestResult, error)
	statsFn     func(ctx context.Context, periodDays int) (*backend.ChannelStatsReport, error)

	dashboardCalls int
	templatesCalls int
	createCalls    int
	updateCalls    int
	sendCalls      int
	historyCalls   int
	updConfigCalls int
}

func (m *mockBackend) Dashboard(ctx context.Context) (*backend.DashboardData, error) {
	m.dashboardCalls++
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx)
	}
	return &backend.DashboardData{}, nil
}

func (m *mockBackend) ListTemplates(ctx context.Context) ([]backend.Template, error) {
	m.templatesCalls++
	if m.templatesFn != nil {
		return m.templatesFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) CreateTemplate(ctx context.Context, in backend.TemplateInput) (*backend.Template, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &backend.Template{ID: 1}, nil
}

func (m *mockBackend) UpdateTemplate(ctx context.Context, id int64, in backend.TemplateInput) (*backend.Template, error) {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, id, in)
	}
	return &backend.Template{ID: id}, nil
}

func (m *mockBackend) NotificationTypes(ctx context.Context) ([]backend.NotificationType, error) {
	if m.typesFn != nil {
		return m.typesFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) Channels(ctx context.Context) ([]backend.ChannelOption, error) {
	if m.channelsFn != nil {
		return m.channelsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) ListEvents(ctx context.Context) ([]backend.Event, error) {
	if m.eventsFn != nil {
		return m.eventsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) SendManual(ctx context.Context, req backend.DispatchRequest) error {
	m.sendCalls++
	if m.sendFn != nil {
		return m.sendFn(ctx, req)
	}
	return nil
}

func (m *mockBackend) History(ctx context.Context, f backend.HistoryFilters) ([]backend.NotificationRecord, error) {
	m.historyCalls++
	if m.historyFn != nil {
		return m.historyFn(ctx, f)
	}
	return nil, nil
}

func (m *mockBackend) ExportHistory(ctx context.Context, format backend.ExportFormat, f backend.HistoryFilters) (*backend.Export, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, format, f)
	}
	return &backend.Export{Filename: "notificacoes.csv"}, nil
}

func (m *mockBackend) ChannelConfig(ctx context.Context) (*backend.ChannelConfig, error) {
	if m.configFn != nil {
		return m.configFn(ctx)
	}
	return &backend.ChannelConfig{}, nil
}

func (m *mockBackend) UpdateChannelConfig(ctx context.Context, cfg backend.ChannelConfigUpdate) error {
	m.updConfigCalls++
	if m.updConfigFn != nil {
		return m.updConfigFn(ctx, cfg)
	}
	return nil
}

func (m *mockBackend) TestChannel(ctx context.Context, canal backend.Canal, recipient string) (*backend.TestResult, error) {
	if m.testFn != nil {
		return m.testFn(ctx, canal, recipient)
	}
	return &backend.TestResult{Success: true}, nil
}

func (m *mockBackend) ChannelStats(ctx context.Context, periodDays int) (*backend.ChannelStatsReport, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, periodDays)
	}
	return &backend.ChannelStatsReport{PeriodDays: periodDays}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectTabFetchesOnce(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())

	if err := c.SelectTab(context.Background(), TabTemplates); err != nil {
		t.Fatalf("SelectTab: %v", err)
	}
	if be.templatesCalls != 1 {
		t.Errorf("templates calls = %d, want 1", be.templatesCalls)
	}
	if be.dashboardCalls != 0 || be.historyCalls != 0 {
		t.Errorf("inactive tabs fetched: dashboard=%d history=%d", be.dashboardCalls, be.historyCalls)
	}
	if c.ActiveTab() != TabTemplates {
		t.Errorf("active tab = %q", c.ActiveTab())
	}
}

func TestSelectTabUnknown(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())

	if err := c.SelectTab(context.Background(), Tab("relatorios")); !errors.Is(err, ErrUnknownTab) {
		t.Fatalf("err = %v, want ErrUnknownTab", err)
	}
	if be.dashboardCalls+be.templatesCalls+be.historyCalls != 0 {
		t.Error("unknown tab triggered a fetch")
	}
}

func TestDashboardFailureKeepsPreviousData(t *testing.T) {
	data := &backend.DashboardData{SentToday: 42}
	be := &mockBackend{
		dashboardFn: func(ctx context.Context) (*backend.DashboardData, error) {
			return data, nil
		},
	}
	c := New(be, testLogger())

	if err := c.LoadDashboard(context.Background()); err != nil {
		t.Fatalf("first load: %v", err)
	}

	be.dashboardFn = func(ctx context.Context) (*backend.DashboardData, error) {
		return nil, errors.New("backend down")
	}
	if err := c.LoadDashboard(context.Background()); err == nil {
		t.Fatal("second load: want error")
	}

	st := c.Dashboard()
	if st.Loading {
		t.Error("loading flag not cleared after failure")
	}
	if st.Error == "" {
		t.Error("error not surfaced")
	}
	if st.Data == nil || st.Data.SentToday != 42 {
		t.Errorf("previous data lost: %+v", st.Data)
	}
}

func TestSetFiltersRefetchesOnlyOnHistoryTab(t *testing.T) {
	var got backend.HistoryFilters
	be := &mockBackend{
		historyFn: func(ctx context.Context, f backend.HistoryFilters) ([]backend.NotificationRecord, error) {
			got = f
			return nil, nil
		},
	}
	c := New(be, testLogger())

	// On the dashboard tab, filters are stored but nothing is fetched.
	if err := c.SetFilters(context.Background(), backend.HistoryFilters{Status: "falhada"}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if be.historyCalls != 0 {
		t.Fatalf("history fetched while inactive: %d calls", be.historyCalls)
	}

	// Switching to history uses the stored filters.
	if err := c.SelectTab(context.Background(), TabHistory); err != nil {
		t.Fatalf("SelectTab: %v", err)
	}
	if be.historyCalls != 1 || got.Status != "falhada" {
		t.Fatalf("history fetch: calls=%d filters=%+v", be.historyCalls, got)
	}

	// Changing filters while active re-queries immediately.
	if err := c.SetFilters(context.Background(), backend.HistoryFilters{Canal: "sms"}); err != nil {
		t.Fatalf("SetFilters: %v", err)
	}
	if be.historyCalls != 2 || got.Canal != "sms" || got.Status != "" {
		t.Fatalf("refetch: calls=%d filters=%+v", be.historyCalls, got)
	}
}

func TestTabSwitchBackRefetchesWithCurrentFilters(t *testing.T) {
	var got backend.HistoryFilters
	be := &mockBackend{
		historyFn: func(ctx context.Context, f backend.HistoryFilters) ([]backend.NotificationRecord, error) {
			got = f
			return nil, nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.SelectTab(ctx, TabHistory); err != nil {
		t.Fatal(err)
	}
	if err := c.SetFilters(ctx, backend.HistoryFilters{Type: "venda_confirmada"}); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectTab(ctx, TabDashboard); err != nil {
		t.Fatal(err)
	}
	if err := c.SelectTab(ctx, TabHistory); err != nil {
		t.Fatal(err)
	}
	if be.historyCalls != 3 {
		t.Errorf("history calls = %d, want 3", be.historyCalls)
	}
	if got.Type != "venda_confirmada" {
		t.Errorf("filters not preserved across tab switch: %+v", got)
	}
}

func TestEditorSeedsCopyNotBinding(t *testing.T) {
	be := &mockBackend{
		templatesFn: func(ctx context.Context) ([]backend.Template, error) {
			return []backend.Template{{ID: 7, Name: "Pedido enviado", Type: "pedido_enviado", Canal: backend.CanalEmail, Content: "Seu pedido saiu", Active: true}}, nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.LoadTemplates(ctx); err != nil {
		t.Fatal(err)
	}
	tmpl, ok := c.FindTemplate(7)
	if !ok {
		t.Fatal("template 7 not found")
	}
	if err := c.OpenTemplateEditor(ctx, tmpl); err != nil {
		t.Fatal(err)
	}

	// Mutating the source after opening must not leak into the form.
	tmpl.Name = "renomeado"
	tmpl.Content = "alterado"

	st, open := c.TemplateEditor()
	if !open {
		t.Fatal("editor not open")
	}
	if st.Fields.Name != "Pedido enviado" || st.Fields.Content != "Seu pedido saiu" {
		t.Errorf("form tracked a live reference: %+v", st.Fields)
	}
	if st.EditingID == nil || *st.EditingID != 7 {
		t.Errorf("editing id = %v", st.EditingID)
	}
}

func TestCreateTemplateFlow(t *testing.T) {
	var created backend.TemplateInput
	be := &mockBackend{
		createFn: func(ctx context.Context, in backend.TemplateInput) (*backend.Template, error) {
			created = in
			return &backend.Template{ID: 12, Name: in.Name}, nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.SelectTab(ctx, TabTemplates); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenTemplateEditor(ctx, nil); err != nil {
		t.Fatal(err)
	}

	st, _ := c.TemplateEditor()
	if !st.Fields.Active {
		t.Error("new template form should default to active")
	}
	if st.EditingID != nil {
		t.Errorf("creation form has editing id %v", st.EditingID)
	}

	st.Fields.Name = "Boas-vindas"
	st.Fields.Type = "boas_vindas"
	st.Fields.Canal = "whatsapp"
	st.Fields.Content = "Olá {{nome}}, bem-vindo!"
	if err := c.SetTemplateFields(st.Fields); err != nil {
		t.Fatal(err)
	}

	if _, err := c.SubmitTemplateEditor(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if be.createCalls != 1 || be.updateCalls != 0 {
		t.Fatalf("create=%d update=%d", be.createCalls, be.updateCalls)
	}
	want := backend.TemplateInput{
		Name:    "Boas-vindas",
		Type:    "boas_vindas",
		Canal:   backend.CanalWhatsApp,
		Content: "Olá {{nome}}, bem-vindo!",
		Active:  true,
	}
	if created != want {
		t.Errorf("payload = %+v, want %+v", created, want)
	}
	if _, open := c.TemplateEditor(); open {
		t.Error("editor still open after successful save")
	}
	// Active templates tab refreshes after the save.
	if be.templatesCalls != 2 {
		t.Errorf("templates calls = %d, want 2", be.templatesCalls)
	}
}

func TestTemplateValidationBlocksBackendCall(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenTemplateEditor(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTemplateFields(TemplateFields{Name: "só nome", Active: true}); err != nil {
		t.Fatal(err)
	}

	_, err := c.SubmitTemplateEditor(ctx)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if be.createCalls != 0 {
		t.Error("invalid form reached the backend")
	}

	// The form keeps its values for correction.
	st, open := c.TemplateEditor()
	if !open || st.Fields.Name != "só nome" {
		t.Errorf("form state after rejection: open=%v fields=%+v", open, st.Fields)
	}
}

func TestComposerDefaults(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())

	if err := c.OpenComposer(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, open := c.Composer()
	if !open {
		t.Fatal("composer not open")
	}
	if st.Fields.Type != "venda_confirmada" || st.Fields.Canal != "whatsapp" {
		t.Errorf("defaults = %+v", st.Fields)
	}
}

func TestComposerTemplateCopyIsOneShot(t *testing.T) {
	var sent backend.DispatchRequest
	be := &mockBackend{
		templatesFn: func(ctx context.Context) ([]backend.Template, error) {
			return []backend.Template{{ID: 3, Name: "Promo", Type: "promocao", Canal: backend.CanalSMS, Title: "Oferta", Content: "50% off"}}, nil
		},
		sendFn: func(ctx context.Context, req backend.DispatchRequest) error {
			sent = req
			return nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SetComposerFields(DispatchFields{
		Type: "venda_confirmada", Canal: "whatsapp",
		Recipient: "+5511999990000", EventID: "9", ScheduleFor: "2026-09-01T10:00:00",
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.SelectComposerTemplate("3"); err != nil {
		t.Fatal(err)
	}
	st, _ := c.Composer()
	if st.Fields.Type != "promocao" || st.Fields.Canal != "sms" || st.Fields.Title != "Oferta" || st.Fields.Content != "50% off" {
		t.Errorf("template values not copied: %+v", st.Fields)
	}
	if st.Fields.Recipient != "+5511999990000" || st.Fields.EventID != "9" || st.Fields.ScheduleFor != "2026-09-01T10:00:00" {
		t.Errorf("unrelated fields overwritten: %+v", st.Fields)
	}

	// Unknown id only changes the selection.
	if err := c.SelectComposerTemplate("404"); err != nil {
		t.Fatal(err)
	}
	st, _ = c.Composer()
	if st.Fields.TemplateID != "404" || st.Fields.Content != "50% off" {
		t.Errorf("unknown id side effects: %+v", st.Fields)
	}

	// Mutating the template after selection must not alter the composed
	// values: the copy was taken at selection time.
	st.Templates[0].Content = "90% off"
	st.Templates[0].Title = "Liquidação"

	st, _ = c.Composer()
	if st.Fields.Content != "50% off" || st.Fields.Title != "Oferta" {
		t.Errorf("composed fields tracked template mutation: %+v", st.Fields)
	}
	if err := c.SubmitComposer(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sent.Content != "50% off" || sent.Title != "Oferta" {
		t.Errorf("dispatched payload tracked template mutation: %+v", sent)
	}
}

func TestComposerSubmitConvertsEmptyToNull(t *testing.T) {
	var got backend.DispatchRequest
	be := &mockBackend{
		sendFn: func(ctx context.Context, req backend.DispatchRequest) error {
			got = req
			return nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SetComposerFields(DispatchFields{
		Type: "venda_confirmada", Canal: "whatsapp",
		Recipient: "+5511988887777", Content: "teste",
	}); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitComposer(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.TemplateID != nil || got.EventID != nil || got.ScheduleFor != nil {
		t.Errorf("empty selections not sent as null: %+v", got)
	}
	if got.Recipient != "+5511988887777" || got.Canal != backend.CanalWhatsApp {
		t.Errorf("payload = %+v", got)
	}
	if _, open := c.Composer(); open {
		t.Error("composer still open after send")
	}
}

func TestDispatchSucceedsWhenHistoryRefreshFails(t *testing.T) {
	be := &mockBackend{
		historyFn: func(ctx context.Context, f backend.HistoryFilters) ([]backend.NotificationRecord, error) {
			return nil, errors.New("backend down")
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	// History is the active tab, so a successful send triggers a refresh.
	_ = c.SelectTab(ctx, TabHistory)

	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SetComposerFields(DispatchFields{
		Type: "venda_confirmada", Canal: "whatsapp",
		Recipient: "+5511999990000", Content: "oi",
	}); err != nil {
		t.Fatal(err)
	}

	// The send went out; the broken refresh must not turn it into a
	// reported failure.
	if err := c.SubmitComposer(ctx); err != nil {
		t.Fatalf("submit after send success: %v", err)
	}
	if be.sendCalls != 1 {
		t.Errorf("send calls = %d, want 1", be.sendCalls)
	}
	if _, open := c.Composer(); open {
		t.Error("composer still open after successful send")
	}
	// The refresh failure lands in the history view state instead.
	if st := c.History(); st.Error == "" || st.Loading {
		t.Errorf("history state after failed refresh: %+v", st)
	}
}

func TestTemplateSaveSucceedsWhenListRefreshFails(t *testing.T) {
	listBroken := false
	be := &mockBackend{
		templatesFn: func(ctx context.Context) ([]backend.Template, error) {
			if listBroken {
				return nil, errors.New("backend down")
			}
			return []backend.Template{{ID: 1, Name: "Promo"}}, nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.SelectTab(ctx, TabTemplates); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenTemplateEditor(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.SetTemplateFields(TemplateFields{
		Name: "Boas-vindas", Type: "boas_vindas", Canal: "whatsapp",
		Content: "Olá!", Active: true,
	}); err != nil {
		t.Fatal(err)
	}

	listBroken = true
	saved, err := c.SubmitTemplateEditor(ctx)
	if err != nil {
		t.Fatalf("submit after save success: %v", err)
	}
	if saved == nil {
		t.Fatal("saved template not returned")
	}
	if be.createCalls != 1 {
		t.Errorf("create calls = %d, want 1", be.createCalls)
	}
	if _, open := c.TemplateEditor(); open {
		t.Error("editor still open after successful save")
	}
	// The refresh failure stays in the view; the loaded list is the
	// last-known-good one.
	st := c.Templates()
	if st.Error == "" {
		t.Error("refresh failure not surfaced in view state")
	}
	if len(st.Items) != 1 || st.Items[0].Name != "Promo" {
		t.Errorf("previous list lost: %+v", st.Items)
	}
}

func TestComposerValidation(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	// Defaults fill type and channel; recipient and content are still blank.
	err := c.SubmitComposer(ctx)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if be.sendCalls != 0 {
		t.Error("invalid dispatch reached the backend")
	}
	if len(verr.Fields) != 2 {
		t.Errorf("fields = %v, want destinatario and conteudo", verr.Fields)
	}
}

func TestConfigDefaultsForAbsentFields(t *testing.T) {
	be := &mockBackend{
		configFn: func(ctx context.Context) (*backend.ChannelConfig, error) {
			// Backend never persisted anything yet.
			return &backend.ChannelConfig{}, nil
		},
	}
	c := New(be, testLogger())

	if err := c.OpenConfigEditor(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, open := c.ConfigEditor()
	if !open || !st.Loaded {
		t.Fatalf("config editor: open=%v loaded=%v", open, st.Loaded)
	}
	f := st.Fields
	if !f.WhatsAppActive || f.SMSActive || f.EmailActive {
		t.Errorf("toggle defaults: whatsapp=%v sms=%v email=%v", f.WhatsAppActive, f.SMSActive, f.EmailActive)
	}
	if f.EmailSMTPPort != 587 {
		t.Errorf("smtp port default = %d, want 587", f.EmailSMTPPort)
	}
	if f.N8NWebhookURL != "" || f.EmailSMTPHost != "" {
		t.Errorf("text defaults not empty: %+v", f)
	}
}

func TestConfigStoredValuesWinOverDefaults(t *testing.T) {
	off := false
	port := 2525
	be := &mockBackend{
		configFn: func(ctx context.Context) (*backend.ChannelConfig, error) {
			return &backend.ChannelConfig{WhatsAppActive: &off, EmailSMTPPort: &port}, nil
		},
	}
	c := New(be, testLogger())

	if err := c.OpenConfigEditor(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, _ := c.ConfigEditor()
	if st.Fields.WhatsAppActive {
		t.Error("stored false overridden by default true")
	}
	if st.Fields.EmailSMTPPort != 2525 {
		t.Errorf("smtp port = %d, want 2525", st.Fields.EmailSMTPPort)
	}
}

func TestConfigSubmitFailureKeepsForm(t *testing.T) {
	be := &mockBackend{
		updConfigFn: func(ctx context.Context, cfg backend.ChannelConfigUpdate) error {
			return errors.New("save failed")
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenConfigEditor(ctx); err != nil {
		t.Fatal(err)
	}
	fields := ConfigFields{WhatsAppActive: true, WhatsAppNumber: "+5511000000000", EmailSMTPPort: 587}
	if err := c.SetConfigFields(fields); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitConfigEditor(ctx); err == nil {
		t.Fatal("want submit error")
	}

	st, open := c.ConfigEditor()
	if !open {
		t.Fatal("form closed despite failure")
	}
	if st.Fields != fields {
		t.Errorf("edits lost on failure: %+v", st.Fields)
	}
	if st.Busy {
		t.Error("busy flag stuck after failure")
	}
}

func TestExportUsesCurrentFilters(t *testing.T) {
	var gotFormat backend.ExportFormat
	var gotFilters backend.HistoryFilters
	be := &mockBackend{
		exportFn: func(ctx context.Context, format backend.ExportFormat, f backend.HistoryFilters) (*backend.Export, error) {
			gotFormat, gotFilters = format, f
			return &backend.Export{Filename: "notificacoes.xlsx"}, nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.SetFilters(ctx, backend.HistoryFilters{Status: "enviada", Canal: "email"}); err != nil {
		t.Fatal(err)
	}
	exp, err := c.ExportHistory(ctx, backend.ExportExcel)
	if err != nil {
		t.Fatal(err)
	}
	if gotFormat != backend.ExportExcel {
		t.Errorf("format = %q", gotFormat)
	}
	if gotFilters.Status != "enviada" || gotFilters.Canal != "email" {
		t.Errorf("filters = %+v", gotFilters)
	}
	if exp.Filename != "notificacoes.xlsx" {
		t.Errorf("filename = %q", exp.Filename)
	}
}

func TestTestChannelValidatesInput(t *testing.T) {
	be := &mockBackend{}
	c := New(be, testLogger())
	ctx := context.Background()

	if _, err := c.TestChannel(ctx, backend.Canal("fax"), "x"); !IsValidation(err) {
		t.Errorf("invalid canal: err = %v", err)
	}
	if _, err := c.TestChannel(ctx, backend.CanalSMS, ""); !IsValidation(err) {
		t.Errorf("empty recipient: err = %v", err)
	}
	res, err := c.TestChannel(ctx, backend.CanalSMS, "+5511912345678")
	if err != nil || !res.Success {
		t.Errorf("valid test: res=%+v err=%v", res, err)
	}
}

func TestLateSubmitDoesNotCloseReopenedComposer(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	be := &mockBackend{
		sendFn: func(ctx context.Context, req backend.DispatchRequest) error {
			close(entered)
			<-release
			return nil
		},
	}
	c := New(be, testLogger())
	ctx := context.Background()

	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.SetComposerFields(DispatchFields{
		Type: "venda_confirmada", Canal: "whatsapp", Recipient: "+55", Content: "x",
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.SubmitComposer(ctx) }()
	<-entered

	// Operator closes and reopens the modal while the send is in flight.
	c.CloseComposer()
	if err := c.OpenComposer(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("late submit: %v", err)
	}

	// The freshly opened composer must survive the old submission landing.
	st, open := c.Composer()
	if !open {
		t.Fatal("reopened composer closed by stale submit")
	}
	if st.Fields.Recipient != "" {
		t.Errorf("reopened composer inherited stale fields: %+v", st.Fields)
	}
}
