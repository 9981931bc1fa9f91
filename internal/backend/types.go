package backend

import "time"

// Status is the delivery state of a notification as reported by the backend.
// The backend owns all transitions; the console only observes them.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusSent      Status = "enviada"
	StatusFailed    Status = "falhada"
	StatusCancelled Status = "cancelada"
)

// Canal is a delivery channel.
type Canal string

const (
	CanalWhatsApp Canal = "whatsapp"
	CanalSMS      Canal = "sms"
	CanalEmail    Canal = "email"
	CanalPush     Canal = "push"
)

func (c Canal) IsValid() bool {
	switch c {
	case CanalWhatsApp, CanalSMS, CanalEmail, CanalPush:
		return true
	}
	return false
}

// ErrorResponse represents an API error body.
type ErrorResponse struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Template is a reusable message blueprint bound to a notification type and
// channel. IDs are backend-assigned and immutable.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nome"`
	Type      string    `json:"tipo_notificacao"`
	Canal     Canal     `json:"canal"`
	Title     string    `json:"titulo,omitempty"`
	Content   string    `json:"conteudo"`
	Active    bool      `json:"ativo"`
	CreatedAt time.Time `json:"criado_em"`
}

// TemplateInput is the payload for creating or updating a template.
type TemplateInput struct {
	Name    string `json:"nome"`
	Type    string `json:"tipo_notificacao"`
	Canal   Canal  `json:"canal"`
	Title   string `json:"titulo,omitempty"`
	Content string `json:"conteudo"`
	Active  bool   `json:"ativo"`
}

// NotificationType is a catalog entry describing one notification kind and
// the substitution variables its templates may use.
type NotificationType struct {
	Value     string `json:"value"`
	Label     string `json:"label"`
	Variables string `json:"variaveis"`
}

// ChannelOption is a catalog entry for a selectable channel.
type ChannelOption struct {
	Value Canal  `json:"value"`
	Label string `json:"label"`
}

// Event is an external campaign-linkable event, owned elsewhere.
type Event struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

// DispatchRequest is a one-off send request, optionally seeded from a
// template and optionally scheduled.
type DispatchRequest struct {
	TemplateID  *int64  `json:"template_id"`
	Type        string  `json:"tipo_notificacao"`
	Canal       Canal   `json:"canal"`
	Recipient   string  `json:"destinatario"`
	Title       string  `json:"titulo,omitempty"`
	Content     string  `json:"conteudo"`
	EventID     *int64  `json:"evento_id"`
	ScheduleFor *string `json:"agendar_para"`
}

// NotificationRecord is one audit entry for an attempted or completed send.
// Read-only from the console's perspective.
type NotificationRecord struct {
	ID           int64      `json:"id"`
	Type         string     `json:"tipo_notificacao"`
	Canal        Canal      `json:"canal"`
	Recipient    string     `json:"destinatario"`
	Title        string     `json:"titulo,omitempty"`
	Content      string     `json:"conteudo"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"tentativas"`
	EventName    string     `json:"evento_nome,omitempty"`
	UserName     string     `json:"usuario_nome,omitempty"`
	SentAt       *time.Time `json:"enviada_em,omitempty"`
	CreatedAt    time.Time  `json:"criada_em"`
	ErrorDetails string     `json:"erro_detalhes,omitempty"`
}

// HistoryFilters narrows a history query. Empty fields mean no constraint
// on that dimension.
type HistoryFilters struct {
	Type      string `json:"tipo_notificacao,omitempty"`
	Canal     string `json:"canal,omitempty"`
	Status    string `json:"status,omitempty"`
	EventID   string `json:"evento_id,omitempty"`
	Recipient string `json:"destinatario,omitempty"`
	DateFrom  string `json:"data_inicio,omitempty"`
	DateTo    string `json:"data_fim,omitempty"`
}

// DashboardData is the precomputed summary. All counts and rates are
// backend-computed; the console only displays them.
type DashboardData struct {
	SentToday    int                  `json:"total_enviadas_hoje"`
	Pending      int                  `json:"total_pendentes"`
	Failed       int                  `json:"total_falhadas"`
	SuccessRate  float64              `json:"taxa_sucesso"`
	Recent       []NotificationRecord `json:"notificacoes_recentes"`
	TopTypes     []TypeCount          `json:"tipos_mais_enviados"`
	ChannelStats []ChannelStat        `json:"canais_estatisticas"`
}

// TypeCount is a per-type send count.
type TypeCount struct {
	Type  string `json:"tipo"`
	Total int    `json:"total"`
}

// ChannelStat is a per-channel delivery summary.
type ChannelStat struct {
	Canal       Canal   `json:"canal"`
	Total       int     `json:"total"`
	Sent        int     `json:"enviadas"`
	SuccessRate float64 `json:"taxa_sucesso"`
}

// ChannelConfig is the singleton per-channel credentials/toggles aggregate
// as returned by the backend. Pointer fields distinguish an absent key from
// a zero value so the console can fill defaults.
type ChannelConfig struct {
	N8NWebhookURL  string `json:"n8n_webhook_url,omitempty"`
	N8NAPIKey      string `json:"n8n_api_key,omitempty"`
	WhatsAppActive *bool  `json:"whatsapp_ativo,omitempty"`
	WhatsAppNumber string `json:"whatsapp_numero,omitempty"`
	SMSActive      *bool  `json:"sms_ativo,omitempty"`
	SMSAPIKey      string `json:"sms_api_key,omitempty"`
	SMSSender      string `json:"sms_remetente,omitempty"`
	EmailActive    *bool  `json:"email_ativo,omitempty"`
	EmailSMTPHost  string `json:"email_smtp_host,omitempty"`
	EmailSMTPPort  *int   `json:"email_smtp_port,omitempty"`
	EmailUser      string `json:"email_usuario,omitempty"`
	EmailPassword  string `json:"email_senha,omitempty"`
	EmailSender    string `json:"email_remetente,omitempty"`
}

// ChannelConfigUpdate is the full-overwrite payload for the singleton
// config. There is no partial patch: every field is always transmitted,
// including fields of disabled channels.
type ChannelConfigUpdate struct {
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

// TestResult is the outcome of a channel test send.
type TestResult struct {
	Success        bool   `json:"sucesso"`
	Message        string `json:"mensagem"`
	NotificationID int64  `json:"notificacao_id,omitempty"`
	Status         Status `json:"status,omitempty"`
}

// Export is a backend-produced history document. The console never decodes
// the payload; it only hands it to the operator.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	ExportExcel ExportFormat = "excel"
	ExportCSV   ExportFormat = "csv"
)

func (f ExportFormat) IsValid() bool {
	return f == ExportExcel || f == ExportCSV
}

// ChannelStatsReport is the detailed per-channel statistics report.
type ChannelStatsReport struct {
	PeriodDays int                            `json:"periodo_dias"`
	DateFrom   string                         `json:"data_inicio"`
	Stats      map[string]ChannelPeriodStats  `json:"estatisticas"`
	Summary    map[string]any                 `json:"resumo"`
}

// ChannelPeriodStats is one channel's delivery summary over a period.
type ChannelPeriodStats struct {
	Canal       string  `json:"canal"`
	Total       int     `json:"total"`
	Sent        int     `json:"enviadas"`
	Failed      int     `json:"falhadas"`
	Pending     int     `json:"pendentes"`
	SuccessRate float64 `json:"taxa_sucesso"`
	AvgSeconds  float64 `json:"tempo_medio_segundos"`
	Active      bool    `json:"ativo"`
}
