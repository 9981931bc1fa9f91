package console

import (
	"context"
	"sync"

	"github.com/avisohq/aviso-console/internal/backend"
)

// ConfigFields is the channel configuration as edited in the modal. The
// whole set is read and written as one unit.
type ConfigFields struct {
	N8NWebhookURL  string `json:"n8n_webhook_url"`
	N8NAPIKey      string `json:"n8n_api_key"`
	WhatsAppActive bool   `json:"whatsapp_ativo"`
	WhatsAppNumber string `json:"whatsapp_numero"`
	SMSActive      bool   `json:"sms_ativo"`
	SMSAPIKey      string `json:"sms_api_key"`
	SMSSender      string `json:"sms_remetente"`
	EmailActive    bool   `json:"email_ativo"`
	EmailSMTPHost  string `json:"email_smtp_host"`
	EmailSMTPPort  int    `json:"email_smtp_port"`
	EmailUser      string `json:"email_usuario"`
	EmailPassword  string `json:"email_senha"`
	EmailSender    string `json:"email_remetente"`
}

// ConfigState is a snapshot of the configuration modal for rendering.
type ConfigState struct {
	Fields  ConfigFields `json:"fields"`
	Loaded  bool         `json:"loaded"`
	LoadErr string       `json:"load_error,omitempty"`
	Busy    bool         `json:"busy"`
}

// ConfigForm is the state behind the channel configuration modal.
type ConfigForm struct {
	mu      sync.Mutex
	fields  ConfigFields
	loaded  bool
	loadErr string
	busy    bool
}

// NewConfigForm creates an empty configuration form. Load fills it.
func NewConfigForm() *ConfigForm {
	return &ConfigForm{}
}

// Load fetches the channel configuration and fills in defaults for any
// field the backend omitted: whatsapp enabled, sms and email disabled,
// SMTP port 587, all text fields empty.
func (f *ConfigForm) Load(ctx context.Context, be Backend) error {
	cfg, err := be.ChannelConfig(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.loadErr = "erro ao carregar configurações"
		return err
	}
	f.fields = applyConfigDefaults(cfg)
	f.loaded = true
	f.loadErr = ""
	return nil
}

func applyConfigDefaults(cfg *backend.ChannelConfig) ConfigFields {
	out := ConfigFields{
		WhatsAppActive: true,
		SMSActive:      false,
		EmailActive:    false,
		EmailSMTPPort:  587,
	}
	if cfg == nil {
		return out
	}
	out.N8NWebhookURL = cfg.N8NWebhookURL
	out.N8NAPIKey = cfg.N8NAPIKey
	out.WhatsAppNumber = cfg.WhatsAppNumber
	out.SMSAPIKey = cfg.SMSAPIKey
	out.SMSSender = cfg.SMSSender
	out.EmailSMTPHost = cfg.EmailSMTPHost
	out.EmailUser = cfg.EmailUser
	out.EmailPassword = cfg.EmailPassword
	out.EmailSender = cfg.EmailSender
	if cfg.WhatsAppActive != nil {
		out.WhatsAppActive = *cfg.WhatsAppActive
	}
	if cfg.SMSActive != nil {
		out.SMSActive = *cfg.SMSActive
	}
	if cfg.EmailActive != nil {
		out.EmailActive = *cfg.EmailActive
	}
	if cfg.EmailSMTPPort != nil {
		out.EmailSMTPPort = *cfg.EmailSMTPPort
	}
	return out
}

// State returns a rendering snapshot.
func (f *ConfigForm) State() ConfigState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ConfigState{
		Fields:  f.fields,
		Loaded:  f.loaded,
		LoadErr: f.loadErr,
		Busy:    f.busy,
	}
}

// SetFields replaces the form fields. Rejected while a save is in flight.
func (f *ConfigForm) SetFields(fields ConfigFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.fields = fields
	return nil
}

// Submit writes the whole configuration back as a single atomic update.
// On failure the form keeps its edited values so nothing is lost.
func (f *ConfigForm) Submit(ctx context.Context, be Backend) error {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return ErrBusy
	}
	fields := f.fields
	f.busy = true
	f.mu.Unlock()

	upd := backend.ChannelConfigUpdate{
		N8NWebhookURL:  fields.N8NWebhookURL,
		N8NAPIKey:      fields.N8NAPIKey,
		WhatsAppActive: fields.WhatsAppActive,
		WhatsAppNumber: fields.WhatsAppNumber,
		SMSActive:      fields.SMSActive,
		SMSAPIKey:      fields.SMSAPIKey,
		SMSSender:      fields.SMSSender,
		EmailActive:    fields.EmailActive,
		EmailSMTPHost:  fields.EmailSMTPHost,
		EmailSMTPPort:  fields.EmailSMTPPort,
		EmailUser:      fields.EmailUser,
		EmailPassword:  fields.EmailPassword,
		EmailSender:    fields.EmailSender,
	}

	err := be.UpdateChannelConfig(ctx, upd)

	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
	return err
}
