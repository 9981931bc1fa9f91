package console

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/avisohq/aviso-console/internal/backend"
)

// TemplateFields holds the editable fields of the template editor form.
// Field names match the backend wire names so validation errors point at
// the same identifiers the operator sees.
type TemplateFields struct {
	Name    string `json:"nome" validate:"required"`
	Type    string `json:"tipo_notificacao" validate:"required"`
	Canal   string `json:"canal" validate:"required"`
	Title   string `json:"titulo"`
	Content string `json:"conteudo" validate:"required"`
	Active  bool   `json:"ativo"`
}

// TemplateEditorState is a snapshot of the editor for rendering.
type TemplateEditorState struct {
	EditingID  *int64                     `json:"editing_id"`
	Fields     TemplateFields             `json:"fields"`
	Types      []backend.NotificationType `json:"types"`
	Channels   []backend.ChannelOption    `json:"channels"`
	CatalogErr string                     `json:"catalog_error,omitempty"`
	Busy       bool                       `json:"busy"`
}

// TemplateForm is the state behind the template editor modal. It is
// created per open and discarded on close; a submission in flight keeps a
// reference to the form it came from, so closing mid-save is safe.
type TemplateForm struct {
	logger *slog.Logger

	mu         sync.Mutex
	editingID  *int64
	fields     TemplateFields
	types      []backend.NotificationType
	channels   []backend.ChannelOption
	catalogErr string
	busy       bool
}

// NewTemplateForm seeds a form for creation (nil) or editing. Editing
// copies the template's values at open time; later changes to the cached
// list item do not leak into the form.
func NewTemplateForm(t *backend.Template, logger *slog.Logger) *TemplateForm {
	f := &TemplateForm{logger: logger}
	if t == nil {
		f.fields = TemplateFields{Active: true}
		return f
	}
	id := t.ID
	f.editingID = &id
	f.fields = TemplateFields{
		Name:    t.Name,
		Type:    t.Type,
		Canal:   string(t.Canal),
		Title:   t.Title,
		Content: t.Content,
		Active:  t.Active,
	}
	return f
}

// LoadCatalog fetches the notification type and channel catalogs as one
// concurrent batch. Either half may fail independently; the form stays
// usable with whatever arrived.
func (f *TemplateForm) LoadCatalog(ctx context.Context, be Backend) error {
	var (
		wg       sync.WaitGroup
		types    []backend.NotificationType
		channels []backend.ChannelOption
		typesErr error
		chanErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		types, typesErr = be.NotificationTypes(ctx)
	}()
	go func() {
		defer wg.Done()
		channels, chanErr = be.Channels(ctx)
	}()
	wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	if typesErr == nil {
		f.types = types
	}
	if chanErr == nil {
		f.channels = channels
	}
	switch {
	case typesErr != nil:
		f.logger.Warn("template catalog load failed", "error", typesErr)
		f.catalogErr = "erro ao carregar tipos de notificação"
		return typesErr
	case chanErr != nil:
		f.logger.Warn("template catalog load failed", "error", chanErr)
		f.catalogErr = "erro ao carregar canais"
		return chanErr
	}
	f.catalogErr = ""
	return nil
}

// State returns a rendering snapshot.
func (f *TemplateForm) State() TemplateEditorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return TemplateEditorState{
		EditingID:  f.editingID,
		Fields:     f.fields,
		Types:      f.types,
		Channels:   f.channels,
		CatalogErr: f.catalogErr,
		Busy:       f.busy,
	}
}

// SetFields replaces the form fields. Rejected while a save is in flight.
func (f *TemplateForm) SetFields(fields TemplateFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.fields = fields
	return nil
}

// Submit validates and saves the template, creating or updating depending
// on how the form was opened. Validation failures never reach the backend.
// On any failure the form keeps its values so the operator can correct and
// retry.
func (f *TemplateForm) Submit(ctx context.Context, be Backend) (*backend.Template, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	fields := f.fields
	editingID := f.editingID
	if err := checkRequired(fields); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.busy = true
	f.mu.Unlock()

	in := backend.TemplateInput{
		Name:    fields.Name,
		Type:    fields.Type,
		Canal:   backend.Canal(fields.Canal),
		Title:   fields.Title,
		Content: fields.Content,
		Active:  fields.Active,
	}

	var (
		saved *backend.Template
		err   error
	)
	if editingID != nil {
		saved, err = be.UpdateTemplate(ctx, *editingID, in)
	} else {
		saved, err = be.CreateTemplate(ctx, in)
	}

	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// parseTemplateID converts a form-encoded template id. Empty strings and
// garbage both mean "no template selected".
func parseTemplateID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
