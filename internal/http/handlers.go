package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"pfm/internal/commands"
	"pfm/internal/core"
	"pfm/internal/log"
	"pfm/internal/viewmodel"
)

var templateFuncs = template.FuncMap{
	"deletePath": func(id string) string {
		return "/transactions/" + url.PathEscape(id) + "/delete"
	},
}

// formView is the add form as rendered.
type formView struct {
	Kind        core.Kind
	Amount      string
	Category    string
	Description string
	Date        string
	Categories  []core.Category
}

// pageData feeds index.html.
type pageData struct {
	Error      string
	Flash      *Flash
	Balance    string
	Income     string
	Expense    string
	Rows       []viewmodel.Row
	Count      int
	Form       formView
	Submitting bool
}

// handleIndex reloads on every render, as opening the dashboard does.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	snap := sess.refresh(r.Context())

	f := sess.formCopy()
	if k, ok := kindParam(r.URL.Query()); ok && k != f.Kind {
		f.SetKind(k, snap.Categories)
	} else {
		f.SyncCategory(snap.Categories)
	}
	sess.setForm(f)

	income, expense, balance := snap.Totals()
	rows := snap.Rows()
	data := pageData{
		Error:   snap.Error,
		Flash:   sess.takeFlash(),
		Balance: core.FormatCurrency(balance),
		Income:  core.FormatCurrency(income),
		Expense: core.FormatCurrency(expense),
		Rows:    rows,
		Count:   len(rows),
		Form: formView{
			Kind:        f.Kind,
			Amount:      f.Amount,
			Category:    f.Category,
			Description: f.Description,
			Date:        f.Date,
			Categories:  snap.CategoriesOf(f.Kind),
		},
		Submitting: sess.cmds.State() == commands.Submitting,
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	f := sess.formCopy()
	applyTransactionForm(&f, r.PostForm)

	err := sess.cmds.Create(r.Context(), &f)
	switch {
	case err == nil:
		sess.setForm(f)
		sess.setFlash(NotificationSuccess, commands.CreatedMessage)
	case errors.Is(err, commands.ErrSubmissionInFlight):
		// the running submission owns the form
		sess.setFlash(NotificationError, commands.Message(err))
	default:
		if !f.Kind.Valid() {
			f.Kind = core.Expense
		}
		sess.setForm(f)
		sess.setFlash(NotificationError, commands.Message(err))
	}
	NewResponse().SeeOther(s.homeFor(f.Kind)).Write(w)
}

// handleReload is the explicit refresh button.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	sess.refresh(r.Context())
	NewResponse().SeeOther(s.homeFor(sess.formCopy().Kind)).Write(w)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	id := r.PathValue("id")
	snap := sess.view(r.Context())

	data := struct {
		Title   string
		Message string
		Row     *viewmodel.Row
		ID      string
	}{Title: commands.DeleteConfirmTitle, Message: commands.DeleteConfirmMessage, ID: id}
	for _, row := range snap.Rows() {
		if row.ID == id {
			data.Row = &row
			break
		}
	}
	s.render(w, r, "confirm_delete.html", data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	id := r.PathValue("id")
	if id == "" {
		NotFoundError("transaction not found").Write(w)
		return
	}

	if err := sess.cmds.DeleteKey(r.Context(), id); err != nil {
		sess.setFlash(NotificationError, commands.Message(err))
	} else {
		sess.setFlash(NotificationSuccess, commands.DeletedMessage)
	}
	NewResponse().SeeOther("/").Write(w)
}

// viewResponse is the JSON form of a session's view model.
type viewResponse struct {
	viewmodel.Snapshot
	Rows   []viewmodel.Row `json:"rows"`
	Totals struct {
		Income  string `json:"income"`
		Expense string `json:"expense"`
		Balance string `json:"balance"`
	} `json:"totals"`
	State string `json:"state"`
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	snap := sess.view(r.Context())

	resp := viewResponse{Snapshot: snap, Rows: snap.Rows(), State: sess.cmds.State().String()}
	income, expense, balance := snap.Totals()
	resp.Totals.Income = core.FormatCurrency(income)
	resp.Totals.Expense = core.FormatCurrency(expense)
	resp.Totals.Balance = core.FormatCurrency(balance)
	NewResponse().JSON(resp).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	}).Write(w)
}

// handleReady checks the finance API and the optional dependencies.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]any)
	fail := func(name, why string) {
		checks[name] = "failed: " + why
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	if _, ok := s.gw.Categories(ctx); ok {
		checks["finance_api"] = "ok"
	} else {
		fail("finance_api", "categories unavailable")
	}
	for _, rc := range s.readiness {
		if err := rc.Check(ctx); err != nil {
			fail(rc.Name, err.Error())
		} else {
			checks[rc.Name] = "ok"
		}
	}
	checks["sessions"] = s.sessions.cache.Size()
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipResolver.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	NewResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		BodyString("Rate limit exceeded. Please try again later.").
		Write(w)
}

func (s *Server) homeFor(k core.Kind) string {
	if k == core.Income {
		return "/?type=income"
	}
	return "/"
}

// render executes the template into a buffer so a failure can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithErrorType(log.ErrorTypeInternal).WithResource(name))
		InternalServerError("rendering failed").Write(w)
		return
	}
	NewResponse().BodyHTML(buf.String()).Write(w)
}
