// Package console implements the operator console state machine: the tabbed
// view controller, the three modal forms, and the history filter plumbing.
// All data comes from the notification backend; the console renders the
// last-known-good state and never mutates delivery records itself.
package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/avisohq/aviso-console/internal/backend"
)

// Backend is the subset of backend operations the console consumes.
// *backend.Client satisfies it.
type Backend interface {
	Dashboard(ctx context.Context) (*backend.DashboardData, error)
	ListTemplates(ctx context.Context) ([]backend.Template, error)
	CreateTemplate(ctx context.Context, in backend.TemplateInput) (*backend.Template, error)
	UpdateTemplate(ctx context.Context, id int64, in backend.TemplateInput) (*backend.Template, error)
	NotificationTypes(ctx context.Context) ([]backend.NotificationType, error)
	Channels(ctx context.Context) ([]backend.ChannelOption, error)
	ListEvents(ctx context.Context) ([]backend.Event, error)
	SendManual(ctx context.Context, req backend.DispatchRequest) error
	History(ctx context.Context, filters backend.HistoryFilters) ([]backend.NotificationRecord, error)
	ExportHistory(ctx context.Context, format backend.ExportFormat, filters backend.HistoryFilters) (*backend.Export, error)
	ChannelConfig(ctx context.Context) (*backend.ChannelConfig, error)
	UpdateChannelConfig(ctx context.Context, cfg backend.ChannelConfigUpdate) error
	TestChannel(ctx context.Context, canal backend.Canal, recipient string) (*backend.TestResult, error)
	ChannelStats(ctx context.Context, periodDays int) (*backend.ChannelStatsReport, error)
}

// Tab identifies one of the console views.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabTemplates Tab = "templates"
	TabHistory   Tab = "historico"
)

func (t Tab) IsValid() bool {
	switch t {
	case TabDashboard, TabTemplates, TabHistory:
		return true
	}
	return false
}

// DashboardState is the dashboard view's isolated state slice.
type DashboardState struct {
	Data    *backend.DashboardData `json:"data"`
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
}

// TemplateListState is the template view's isolated state slice.
type TemplateListState struct {
	Items   []backend.Template `json:"items"`
	Loaded  bool               `json:"loaded"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

// HistoryState is the history view's isolated state slice.
type HistoryState struct {
	Records []backend.NotificationRecord `json:"records"`
	Loaded  bool                         `json:"loaded"`
	Loading bool                         `json:"loading"`
	Error   string                       `json:"error,omitempty"`
}

// Controller owns the console-wide UI state: the active tab, the history
// filter set, per-view data slices, and the three modal forms. Each view
// keeps its own fetch/loading/error state so a failure in one cannot
// corrupt another's rendered data.
type Controller struct {
	backend Backend
	logger  *slog.Logger

	mu      sync.Mutex
	active  Tab
	filters backend.HistoryFilters

	dashboard DashboardState
	templates TemplateListState
	history   HistoryState

	// Per-view fetch generations. A fetch only applies its result if no
	// newer fetch for the same view started after it.
	dashGen uint64
	tmplGen uint64
	histGen uint64

	editor   *TemplateForm
	composer *DispatchForm
	config   *ConfigForm
}

// New creates a Controller starting on the dashboard tab with an empty
// filter set. Nothing is fetched until the first SelectTab or explicit
// load call.
func New(be Backend, logger *slog.Logger) *Controller {
	return &Controller{
		backend: be,
		logger:  logger,
		active:  TabDashboard,
	}
}

// ActiveTab returns the currently selected tab.
func (c *Controller) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Filters returns the current history filter set.
func (c *Controller) Filters() backend.HistoryFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Dashboard returns a copy of the dashboard view state.
func (c *Controller) Dashboard() DashboardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboard
}

// Templates returns a copy of the template list view state.
func (c *Controller) Templates() TemplateListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.templates
}

// History returns a copy of the history view state.
func (c *Controller) History() HistoryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history
}

// SelectTab switches the active view and triggers exactly one fetch for
// the newly active tab. Inactive tabs are never prefetched.
func (c *Controller) SelectTab(ctx context.Context, tab Tab) error {
	if !tab.IsValid() {
		return ErrUnknownTab
	}

	c.mu.Lock()
	c.active = tab
	c.mu.Unlock()

	return c.refresh(ctx, tab)
}

// SetFilters replaces the history filter set. While the history tab is
// active this re-issues the history query; on other tabs the filters are
// stored and used by the next history fetch.
func (c *Controller) SetFilters(ctx context.Context, filters backend.HistoryFilters) error {
	c.mu.Lock()
	c.filters = filters
	active := c.active
	c.mu.Unlock()

	if active == TabHistory {
		return c.LoadHistory(ctx)
	}
	return nil
}

func (c *Controller) refresh(ctx context.Context, tab Tab) error {
	switch tab {
	case TabDashboard:
		return c.LoadDashboard(ctx)
	case TabTemplates:
		return c.LoadTemplates(ctx)
	case TabHistory:
		return c.LoadHistory(ctx)
	}
	return ErrUnknownTab
}

// LoadDashboard fetches the dashboard summary. On failure the previous
// data stays on screen and only the error string changes; the loading
// flag is cleared on every path.
func (c *Controller) LoadDashboard(ctx context.Context) error {
	c.mu.Lock()
	c.dashGen++
	gen := c.dashGen
	c.dashboard.Loading = true
	c.mu.Unlock()

	data, err := c.backend.Dashboard(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.dashGen {
		// A newer fetch superseded this one; its result already applied
		// or will apply. Do not clobber it.
		return err
	}
	c.dashboard.Loading = false
	if err != nil {
		c.logger.Error("dashboard fetch failed", "error", err)
		c.dashboard.Error = "erro ao carregar dashboard de notificações"
		return err
	}
	c.dashboard.Data = data
	c.dashboard.Error = ""
	return nil
}

// LoadTemplates fetches the template list.
func (c *Controller) LoadTemplates(ctx context.Context) error {
	c.mu.Lock()
	c.tmplGen++
	gen := c.tmplGen
	c.templates.Loading = true
	c.mu.Unlock()

	items, err := c.backend.ListTemplates(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.tmplGen {
		return err
	}
	c.templates.Loading = false
	if err != nil {
		c.logger.Error("template list fetch failed", "error", err)
		c.templates.Error = "erro ao carregar templates"
		return err
	}
	c.templates.Items = items
	c.templates.Loaded = true
	c.templates.Error = ""
	return nil
}

// LoadHistory queries the notification history using the filter set as it
// stands at call time.
func (c *Controller) LoadHistory(ctx context.Context) error {
	c.mu.Lock()
	c.histGen++
	gen := c.histGen
	filters := c.filters
	c.history.Loading = true
	c.mu.Unlock()

	records, err := c.backend.History(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.histGen {
		return err
	}
	c.history.Loading = false
	if err != nil {
		c.logger.Error("history fetch failed", "error", err)
		c.history.Error = "erro ao carregar histórico"
		return err
	}
	c.history.Records = records
	c.history.Loaded = true
	c.history.Error = ""
	return nil
}

// ExportHistory requests a history export for the current filter set and
// returns the backend-produced document untouched.
func (c *Controller) ExportHistory(ctx context.Context, format backend.ExportFormat) (*backend.Export, error) {
	c.mu.Lock()
	filters := c.filters
	c.mu.Unlock()

	return c.backend.ExportHistory(ctx, format, filters)
}

// TestChannel asks the backend to send a test notification.
func (c *Controller) TestChannel(ctx context.Context, canal backend.Canal, recipient string) (*backend.TestResult, error) {
	if !canal.IsValid() {
		return nil, &ValidationError{Fields: []string{"canal"}}
	}
	if recipient == "" {
		return nil, &ValidationError{Fields: []string{"destinatario"}}
	}
	return c.backend.TestChannel(ctx, canal, recipient)
}

// ChannelStats fetches the per-channel statistics report.
func (c *Controller) ChannelStats(ctx context.Context, periodDays int) (*backend.ChannelStatsReport, error) {
	return c.backend.ChannelStats(ctx, periodDays)
}

// FindTemplate looks up a template by id in the loaded list.
func (c *Controller) FindTemplate(id int64) (*backend.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.templates.Items {
		if c.templates.Items[i].ID == id {
			t := c.templates.Items[i]
			return &t, true
		}
	}
	return nil, false
}

// --- template editor -------------------------------------------------------

// OpenTemplateEditor opens the editor modal. A nil template means "create
// new"; otherwise the form is seeded with a fresh copy of the template's
// current values so editing never mutates the cached list item. The catalog
// load failure is reported but leaves the form usable.
func (c *Controller) OpenTemplateEditor(ctx context.Context, t *backend.Template) error {
	form := NewTemplateForm(t, c.logger)

	c.mu.Lock()
	c.editor = form
	c.mu.Unlock()

	return form.LoadCatalog(ctx, c.backend)
}

// CloseTemplateEditor closes the editor modal, discarding form state.
func (c *Controller) CloseTemplateEditor() {
	c.mu.Lock()
	c.editor = nil
	c.mu.Unlock()
}

// TemplateEditor returns the editor state, or false when closed.
func (c *Controller) TemplateEditor() (TemplateEditorState, bool) {
	c.mu.Lock()
	form := c.editor
	c.mu.Unlock()
	if form == nil {
		return TemplateEditorState{}, false
	}
	return form.State(), true
}

// SetTemplateFields replaces the editor's form fields.
func (c *Controller) SetTemplateFields(fields TemplateFields) error {
	c.mu.Lock()
	form := c.editor
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}
	return form.SetFields(fields)
}

// SubmitTemplateEditor validates and saves the template. On success the
// editor closes and, if the template tab is active, the list is refreshed.
// On any failure the editor stays open with its values intact.
func (c *Controller) SubmitTemplateEditor(ctx context.Context) (*backend.Template, error) {
	c.mu.Lock()
	form := c.editor
	c.mu.Unlock()
	if form == nil {
		return nil, ErrNoEditor
	}

	saved, err := form.Submit(ctx, c.backend)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Only close if this form is still the open one; a response landing
	// after the operator closed or reopened the modal must not touch the
	// newer state.
	if c.editor == form {
		c.editor = nil
	}
	active := c.active
	c.mu.Unlock()

	// The save is already durable; a failed list refresh is a view
	// concern and lands in the template view's error state, not here.
	if active == TabTemplates {
		if err := c.LoadTemplates(ctx); err != nil {
			c.logger.Warn("template list refresh failed after save", "error", err)
		}
	}
	return saved, nil
}

// --- dispatch composer -----------------------------------------------------

// OpenComposer opens the manual dispatch modal with default form values and
// loads templates, events, and channels as one concurrent batch.
func (c *Controller) OpenComposer(ctx context.Context) error {
	form := NewDispatchForm(c.logger)

	c.mu.Lock()
	c.composer = form
	c.mu.Unlock()

	return form.LoadCatalog(ctx, c.backend)
}

// CloseComposer closes the dispatch modal.
func (c *Controller) CloseComposer() {
	c.mu.Lock()
	c.composer = nil
	c.mu.Unlock()
}

// Composer returns the composer state, or false when closed.
func (c *Controller) Composer() (ComposerState, bool) {
	c.mu.Lock()
	form := c.composer
	c.mu.Unlock()
	if form == nil {
		return ComposerState{}, false
	}
	return form.State(), true
}

// SetComposerFields replaces the composer's form fields.
func (c *Controller) SetComposerFields(fields DispatchFields) error {
	c.mu.Lock()
	form := c.composer
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}
	return form.SetFields(fields)
}

// SelectComposerTemplate applies the one-shot template copy described in
// the data model: a known id overwrites type, channel, title and content
// from the template's values at selection time; an unknown or cleared id
// changes only the selection itself.
func (c *Controller) SelectComposerTemplate(id string) error {
	c.mu.Lock()
	form := c.composer
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}
	return form.SelectTemplate(id)
}

// SubmitComposer validates and sends the dispatch. Success closes the
// composer and refreshes history if it is the active tab.
func (c *Controller) SubmitComposer(ctx context.Context) error {
	c.mu.Lock()
	form := c.composer
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}

	if err := form.Submit(ctx, c.backend); err != nil {
		return err
	}

	c.mu.Lock()
	if c.composer == form {
		c.composer = nil
	}
	active := c.active
	c.mu.Unlock()

	// The notification went out; a failed history refresh must not make
	// the dispatch look failed. The history view carries the error.
	if active == TabHistory {
		if err := c.LoadHistory(ctx); err != nil {
			c.logger.Warn("history refresh failed after dispatch", "error", err)
		}
	}
	return nil
}

// --- channel configuration -------------------------------------------------

// OpenConfigEditor opens the channel configuration modal and loads the
// singleton aggregate, defaulting any field the backend omitted.
func (c *Controller) OpenConfigEditor(ctx context.Context) error {
	form := NewConfigForm()

	c.mu.Lock()
	c.config = form
	c.mu.Unlock()

	return form.Load(ctx, c.backend)
}

// CloseConfigEditor closes the configuration modal.
func (c *Controller) CloseConfigEditor() {
	c.mu.Lock()
	c.config = nil
	c.mu.Unlock()
}

// ConfigEditor returns the configuration form state, or false when closed.
func (c *Controller) ConfigEditor() (ConfigState, bool) {
	c.mu.Lock()
	form := c.config
	c.mu.Unlock()
	if form == nil {
		return ConfigState{}, false
	}
	return form.State(), true
}

// SetConfigFields replaces the configuration form fields.
func (c *Controller) SetConfigFields(fields ConfigFields) error {
	c.mu.Lock()
	form := c.config
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}
	return form.SetFields(fields)
}

// SubmitConfigEditor sends the whole configuration as one atomic update.
func (c *Controller) SubmitConfigEditor(ctx context.Context) error {
	c.mu.Lock()
	form := c.config
	c.mu.Unlock()
	if form == nil {
		return ErrNoEditor
	}

	if err := form.Submit(ctx, c.backend); err != nil {
		return err
	}

	c.mu.Lock()
	if c.config == form {
		c.config = nil
	}
	c.mu.Unlock()
	return nil
}
