package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/avisohq/aviso-console/internal/backend"
)

// DispatchFields holds the manual dispatch form as the operator types it.
// Everything is a string at this layer; Submit converts to the wire shape,
// turning empty selections into null references.
type DispatchFields struct {
	TemplateID  string `json:"template_id"`
	Type        string `json:"tipo_notificacao"`
	Canal       string `json:"canal"`
	Recipient   string `json:"destinatario" validate:"required"`
	Title       string `json:"titulo"`
	Content     string `json:"conteudo" validate:"required"`
	EventID     string `json:"evento_id"`
	ScheduleFor string `json:"agendar_para"`
}

// ComposerState is a snapshot of the dispatch modal for rendering.
type ComposerState struct {
	Fields     DispatchFields          `json:"fields"`
	Templates  []backend.Template      `json:"templates"`
	Events     []backend.Event         `json:"events"`
	Channels   []backend.ChannelOption `json:"channels"`
	CatalogErr string                  `json:"catalog_error,omitempty"`
	Busy       bool                    `json:"busy"`
}

// DispatchForm is the state behind the manual dispatch modal.
type DispatchForm struct {
	logger *slog.Logger

	mu         sync.Mutex
	fields     DispatchFields
	templates  []backend.Template
	events     []backend.Event
	channels   []backend.ChannelOption
	catalogErr string
	busy       bool
}

// NewDispatchForm creates a composer with the standard defaults: confirmed
// sale over whatsapp, everything else blank.
func NewDispatchForm(logger *slog.Logger) *DispatchForm {
	return &DispatchForm{
		logger: logger,
		fields: DispatchFields{
			Type:  "venda_confirmada",
			Canal: string(backend.CanalWhatsApp),
		},
	}
}

// LoadCatalog fetches templates, events, and channels as one concurrent
// batch. The modal opens with whatever subset loaded; only the first error
// is surfaced.
func (f *DispatchForm) LoadCatalog(ctx context.Context, be Backend) error {
	var (
		wg       sync.WaitGroup
		tmpls    []backend.Template
		events   []backend.Event
		channels []backend.ChannelOption
		tmplErr  error
		evErr    error
		chanErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		tmpls, tmplErr = be.ListTemplates(ctx)
	}()
	go func() {
		defer wg.Done()
		events, evErr = be.ListEvents(ctx)
	}()
	go func() {
		defer wg.Done()
		channels, chanErr = be.Channels(ctx)
	}()
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	if tmplErr == nil {
		f.templates = tmpls
	}
	if evErr == nil {
		f.events = events
	}
	if chanErr == nil {
		f.channels = channels
	}
	for _, err := range []error{tmplErr, evErr, chanErr} {
		if err != nil {
			f.logger.Warn("dispatch catalog load failed", "error", err)
			f.catalogErr = "erro ao carregar dados do formulário"
			return err
		}
	}
	f.catalogErr = ""
	return nil
}

// State returns a rendering snapshot.
func (f *DispatchForm) State() ComposerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ComposerState{
		Fields:     f.fields,
		Templates:  f.templates,
		Events:     f.events,
		Channels:   f.channels,
		CatalogErr: f.catalogErr,
		Busy:       f.busy,
	}
}

// SetFields replaces the form fields. Rejected while a send is in flight.
func (f *DispatchForm) SetFields(fields DispatchFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.fields = fields
	return nil
}

// SelectTemplate records the selection and, when the id matches a loaded
// template, copies that template's type, channel, title and content into
// the form once. Recipient, event, and schedule are preserved. The copy is
// a one-shot: editing the fields afterwards does not touch the template,
// and the template changing later does not touch the form.
func (f *DispatchForm) SelectTemplate(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}

	f.fields.TemplateID = id
	tid, ok := parseTemplateID(id)
	if !ok {
		return nil
	}
	for i := range f.templates {
		if f.templates[i].ID == tid {
			t := f.templates[i]
			f.fields.Type = t.Type
			f.fields.Canal = string(t.Canal)
			f.fields.Title = t.Title
			f.fields.Content = t.Content
			return nil
		}
	}
	return nil
}

// Submit validates and sends the dispatch. Empty template, event, and
// schedule selections go over the wire as nulls, not empty strings.
func (f *DispatchForm) Submit(ctx context.Context, be Backend) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	fields := f.fields
	if err := checkRequired(fields); err != nil {
		f.mu.Unlock()
		return err
	}
	f.busy = true
	f.mu.Unlock()

	req := backend.DispatchRequest{
		Type:      fields.Type,
		Canal:     backend.Canal(fields.Canal),
		Recipient: fields.Recipient,
		Title:     fields.Title,
		Content:   fields.Content,
	}
	if id, ok := parseTemplateID(fields.TemplateID); ok {
		req.TemplateID = &id
	}
	if id, ok := parseTemplateID(fields.EventID); ok {
		req.EventID = &id
	}
	if fields.ScheduleFor != "" {
		s := fields.ScheduleFor
		req.ScheduleFor = &s
	}

	err := be.SendManual(ctx, req)

	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
	return err
}
