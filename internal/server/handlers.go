package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avisohq/aviso-console/internal/audit"
	"github.com/avisohq/aviso-console/internal/backend"
	"github.com/avisohq/aviso-console/internal/console"
	"github.com/avisohq/aviso-console/internal/metrics"
)

// ErrorResponse is the error response
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"campos,omitempty"`
}

// StateResponse is the composite console state returned by GET /state
type StateResponse struct {
	ActiveTab console.Tab                  `json:"active_tab"`
	Filters   backend.HistoryFilters       `json:"filters"`
	Dashboard console.DashboardState       `json:"dashboard"`
	Templates console.TemplateListState    `json:"templates"`
	History   console.HistoryState         `json:"history"`
	Editor    *console.TemplateEditorState `json:"editor,omitempty"`
	Composer  *console.ComposerState       `json:"composer,omitempty"`
	Config    *console.ConfigState         `json:"config,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) state() StateResponse {
	resp := StateResponse{
		ActiveTab: s.controller.ActiveTab(),
		Filters:   s.controller.Filters(),
		Dashboard: s.controller.Dashboard(),
		Templates: s.controller.Templates(),
		History:   s.controller.History(),
	}
	if st, open := s.controller.TemplateEditor(); open {
		resp.Editor = &st
	}
	if st, open := s.controller.Composer(); open {
		resp.Composer = &st
	}
	if st, open := s.controller.ConfigEditor(); open {
		resp.Config = &st
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	tab := console.Tab(chi.URLParam(r, "tab"))
	if err := s.controller.SelectTab(r.Context(), tab); err != nil {
		if errors.Is(err, console.ErrUnknownTab) {
			s.sendError(w, http.StatusBadRequest, fmt.Sprintf("unknown tab: %q", tab))
			return
		}
		// The tab switched even though the fetch failed; the view carries
		// the error. Report the state rather than failing the switch.
		s.logger.Warn("tab fetch failed", "tab", tab, "error", err)
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var filters backend.HistoryFilters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetFilters(r.Context(), filters); err != nil {
		s.logger.Warn("history refetch failed", "error", err)
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st := s.controller.Dashboard()
	// An explicit empty-state marker so clients can distinguish "no sends
	// yet" from "never loaded".
	s.sendJSON(w, http.StatusOK, map[string]any{
		"data":    st.Data,
		"loading": st.Loading,
		"error":   st.Error,
		"loaded":  st.Data != nil,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.controller.Templates())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.controller.History())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := backend.ExportFormat(chi.URLParam(r, "format"))
	if !format.IsValid() {
		s.sendError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format: %q", format))
		return
	}

	exp, err := s.controller.ExportHistory(r.Context(), format)
	if err != nil {
		s.sendConsoleError(w, err)
		return
	}

	metrics.IncExports(string(format))
	s.recordAudit(r, "history.export", "historico", "", string(format))

	if exp.ContentType != "" {
		w.Header().Set("Content-Type", exp.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

// --- template editor -------------------------------------------------------

type openEditorRequest struct {
	TemplateID *int64 `json:"template_id"`
}

func (s *Server) handleOpenTemplateEditor(w http.ResponseWriter, r *http.Request) {
	var req openEditorRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.sendError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var tmpl *backend.Template
	if req.TemplateID != nil {
		t, ok := s.controller.FindTemplate(*req.TemplateID)
		if !ok {
			s.sendError(w, http.StatusNotFound, fmt.Sprintf("template %d not loaded", *req.TemplateID))
			return
		}
		tmpl = t
	}

	// A catalog failure is carried in the form state; the editor still opens.
	if err := s.controller.OpenTemplateEditor(r.Context(), tmpl); err != nil {
		s.logger.Warn("template catalog load failed", "error", err)
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleCloseTemplateEditor(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseTemplateEditor()
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSetTemplateFields(w http.ResponseWriter, r *http.Request) {
	var fields console.TemplateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetTemplateFields(fields); err != nil {
		s.sendConsoleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSubmitTemplateEditor(w http.ResponseWriter, r *http.Request) {
	action := "template.create"
	if st, open := s.controller.TemplateEditor(); open && st.EditingID != nil {
		action = "template.update"
	}

	saved, err := s.controller.SubmitTemplateEditor(r.Context())
	if err != nil {
		s.sendConsoleError(w, err)
		return
	}

	switch action {
	case "template.update":
		metrics.IncTemplateSaves("update")
	default:
		metrics.IncTemplateSaves("create")
	}
	s.recordAudit(r, action, "template", strconv.FormatInt(saved.ID, 10), saved.Name)

	s.sendJSON(w, http.StatusOK, saved)
}

// --- dispatch composer -----------------------------------------------------

func (s *Server) handleOpenComposer(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.OpenComposer(r.Context()); err != nil {
		s.logger.Warn("dispatch catalog load failed", "error", err)
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleCloseComposer(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseComposer()
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSetComposerFields(w http.ResponseWriter, r *http.Request) {
	var fields console.DispatchFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetComposerFields(fields); err != nil {
		s.sendConsoleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

type selectTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

func (s *Server) handleSelectComposerTemplate(w http.ResponseWriter, r *http.Request) {
	var req selectTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SelectComposerTemplate(req.TemplateID); err != nil {
		s.sendConsoleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSubmitComposer(w http.ResponseWriter, r *http.Request) {
	var canal, recipient string
	if st, open := s.controller.Composer(); open {
		canal = st.Fields.Canal
		recipient = st.Fields.Recipient
	}

	if err := s.controller.SubmitComposer(r.Context()); err != nil {
		s.sendConsoleError(w, err)
		return
	}

	metrics.IncDispatches(canal)
	s.recordAudit(r, "dispatch.send", "notificacao", "", canal+" -> "+recipient)

	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- channel configuration -------------------------------------------------

func (s *Server) handleOpenConfigEditor(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.OpenConfigEditor(r.Context()); err != nil {
		s.logger.Warn("channel config load failed", "error", err)
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleCloseConfigEditor(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseConfigEditor()
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSetConfigFields(w http.ResponseWriter, r *http.Request) {
	var fields console.ConfigFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.controller.SetConfigFields(fields); err != nil {
		s.sendConsoleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSubmitConfigEditor(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.SubmitConfigEditor(r.Context()); err != nil {
		s.sendConsoleError(w, err)
		return
	}

	s.recordAudit(r, "config.update", "configuracoes", "", "")
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- channel test and stats ------------------------------------------------

func (s *Server) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	canal := backend.Canal(chi.URLParam(r, "canal"))
	recipient := r.URL.Query().Get("destinatario")

	res, err := s.controller.TestChannel(r.Context(), canal, recipient)
	if err != nil {
		s.sendConsoleError(w, err)
		return
	}

	s.recordAudit(r, "channel.test", "canal", string(canal), recipient)
	s.sendJSON(w, http.StatusOK, res)
}

func (s *Server) handleChannelStats(w http.ResponseWriter, r *http.Request) {
	periodDays := 30
	if v := r.URL.Query().Get("periodo_dias"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.sendError(w, http.StatusBadRequest, "periodo_dias must be a positive integer")
			return
		}
		periodDays = n
	}

	report, err := s.controller.ChannelStats(r.Context(), periodDays)
	if err != nil {
		s.sendConsoleError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, report)
}

// --- audit -----------------------------------------------------------------

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auditListFilter(q.Get("operator"), q.Get("action"), q.Get("limit"), q.Get("offset"))

	entries, err := s.auditLog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("audit list failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func auditListFilter(operator, action, limitStr, offsetStr string) audit.ListFilter {
	filter := audit.ListFilter{Operator: operator, Action: action, Limit: 100}
	if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
		filter.Offset = n
	}
	return filter
}

// recordAudit writes one operator action entry; failures are logged and
// never fail the request that triggered them
func (s *Server) recordAudit(r *http.Request, action, entity, entityID, details string) {
	operator := operatorFrom(r.Context())
	if err := s.auditLog.Record(r.Context(), operator, action, entity, entityID, details); err != nil {
		s.logger.Error("audit record failed", "action", action, "error", err)
	}
}

// sendConsoleError maps console and backend errors onto HTTP statuses
func (s *Server) sendConsoleError(w http.ResponseWriter, err error) {
	var verr *console.ValidationError
	if errors.As(err, &verr) {
		s.sendJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  verr.Error(),
			Fields: verr.Fields,
		})
		return
	}
	if errors.Is(err, console.ErrBusy) || errors.Is(err, console.ErrNoEditor) {
		s.sendError(w, http.StatusConflict, err.Error())
		return
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status >= 500 {
			status = http.StatusBadGateway
		}
		s.sendError(w, status, apiErr.Error())
		return
	}

	s.logger.Error("backend call failed", "error", err)
	s.sendError(w, http.StatusBadGateway, "notification backend unavailable")
}

// sendJSON sends a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
