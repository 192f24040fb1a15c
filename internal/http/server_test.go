package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pfm/internal/commands"
	"pfm/internal/core"
	"pfm/internal/gateway"
	"pfm/internal/gateway/memory"
	"pfm/internal/viewmodel"
)

var testNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New(nil)
	store.Seed(
		core.Transaction{ID: core.ObjectID("transaction:salary"), Kind: core.Income, Amount: core.MustAmount("250000"), Category: "給与", Date: core.NewDate(2024, 2, 25)},
		core.Transaction{ID: core.StringID("t-lunch"), Kind: core.Expense, Amount: core.MustAmount("1200"), Category: "食費", Description: "ランチ", Date: core.NewDate(2024, 3, 1)},
	)
	opts.Gateway = gateway.New(store, nil)
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	srv, err := NewServer(":0", opts)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv, store
}

// browser replays the session cookie like a real client.
type browser struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	rec := httptest.NewRecorder()
	b.srv.Handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) view() viewResponse {
	b.t.Helper()
	rec := b.do(http.MethodGet, "/api/view", nil)
	if rec.Code != http.StatusOK {
		b.t.Fatalf("/api/view status=%d", rec.Code)
	}
	var v viewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		b.t.Fatalf("decode view: %v", err)
	}
	return v
}

func TestIndexRendersDashboard(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	rec := b.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status=%d", rec.Code)
	}
	body := rec.Body.String()
	// html/template escapes + in text
	for _, want := range []string{"総残高", "¥248,800", "&#43;¥250,000", "-¥1,200", "🍔", "ランチ", "説明なし", "2 件", "3月1日", `value="2024-03-15"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if strings.Index(body, "ランチ") > strings.Index(body, "説明なし") {
		t.Error("newest transaction should be listed first")
	}
	if b.cookie == nil {
		t.Fatal("session cookie not set")
	}
	if rec.Header().Get("Cache-Control") != "no-store" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing headers: %v", rec.Header())
	}
}

func TestKindToggleFiltersCategories(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	body := b.do(http.MethodGet, "/?type=income", nil).Body.String()
	if !strings.Contains(body, "給与") || strings.Contains(body, `<option value="食費"`) {
		t.Fatal("income form should only offer income categories")
	}
	if !strings.Contains(body, `<option value="給与" selected>`) {
		t.Error("first income category should be selected by default")
	}
}

func TestCreateRedirectsAndReloads(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}
	b.do(http.MethodGet, "/", nil)

	rec := b.do(http.MethodPost, "/transactions", url.Values{
		"type": {"expense"}, "amount": {"3,000"}, "category": {"交通費"}, "description": {"定期券"}, "date": {"2024-03-10"},
	})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("create: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	body := b.do(http.MethodGet, "/", nil).Body.String()
	for _, want := range []string{commands.CreatedMessage, "定期券", "-¥3,000", "3 件"} {
		if !strings.Contains(body, want) {
			t.Errorf("after create, body missing %q", want)
		}
	}
	if strings.Contains(b.do(http.MethodGet, "/", nil).Body.String(), commands.CreatedMessage) {
		t.Error("flash should be shown once")
	}

	v := b.view()
	if v.Totals.Expense != "¥4,200" {
		t.Errorf("expense total = %s", v.Totals.Expense)
	}
}

func TestCreateValidationKeepsForm(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	b.do(http.MethodPost, "/transactions", url.Values{
		"type": {"expense"}, "amount": {"0"}, "category": {"食費"}, "description": {"keep me"},
	})
	body := b.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, commands.Message(commands.ErrInvalidAmount)) {
		t.Error("validation message not shown")
	}
	if !strings.Contains(body, `value="keep me"`) {
		t.Error("form input should survive a rejected submission")
	}
	if v := b.view(); len(v.Transactions) != 2 {
		t.Errorf("nothing should have been created, got %d", len(v.Transactions))
	}
}

func TestCreateIncomeReturnsToIncomeForm(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	rec := b.do(http.MethodPost, "/transactions", url.Values{
		"type": {"income"}, "amount": {"5000"}, "category": {"副業"}, "date": {"2024-03-12"},
	})
	if rec.Header().Get("Location") != "/?type=income" {
		t.Fatalf("location = %q", rec.Header().Get("Location"))
	}
}

func TestDeleteFlow(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	confirm := b.do(http.MethodGet, "/transactions/transaction:salary/delete", nil)
	if confirm.Code != http.StatusOK || !strings.Contains(confirm.Body.String(), commands.DeleteConfirmMessage) {
		t.Fatalf("confirm page: status=%d", confirm.Code)
	}

	rec := b.do(http.MethodPost, "/transactions/transaction:salary/delete", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status=%d", rec.Code)
	}
	v := b.view()
	if v.Snapshot.Contains("transaction:salary") || len(v.Rows) != 1 {
		t.Fatalf("deleted transaction still listed: %+v", v.Rows)
	}
	if !strings.Contains(b.do(http.MethodGet, "/", nil).Body.String(), commands.DeletedMessage) {
		t.Error("delete flash missing")
	}
}

func TestDeleteUnknownShowsError(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	b.do(http.MethodPost, "/transactions/missing/delete", url.Values{})
	if !strings.Contains(b.do(http.MethodGet, "/", nil).Body.String(), commands.Message(commands.ErrDeleteFailed)) {
		t.Error("delete failure message missing")
	}
}

func TestMutationMarksOtherSessionsStale(t *testing.T) {
	var published []core.MutationEvent
	events := commands.PublisherFunc(func(_ context.Context, ev core.MutationEvent) error {
		published = append(published, ev)
		return nil
	})
	srv, _ := newTestServer(t, Options{Events: events})
	alice := &browser{t: t, srv: srv}
	bob := &browser{t: t, srv: srv}

	if len(bob.view().Rows) != 2 {
		t.Fatal("bob should start with two rows")
	}
	alice.do(http.MethodPost, "/transactions/t-lunch/delete", url.Values{})

	if len(published) != 1 || published[0].Source != srv.Source() || published[0].ID != "t-lunch" {
		t.Fatalf("unexpected events: %+v", published)
	}
	if v := bob.view(); len(v.Rows) != 1 || v.Stale {
		t.Fatalf("bob should have reloaded: rows=%d stale=%v", len(v.Rows), v.Stale)
	}
}

func TestApplyRemoteMutation(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}
	b.view()

	store.Seed(core.Transaction{Kind: core.Expense, Amount: core.MustAmount("100"), Category: "娯楽", Date: core.NewDate(2024, 3, 14)})

	srv.ApplyRemoteMutation(context.Background(), core.MutationEvent{Action: core.MutationCreated, Source: srv.Source()})
	if v := b.view(); len(v.Rows) != 2 {
		t.Fatal("own events must not trigger a reload")
	}

	srv.ApplyRemoteMutation(context.Background(), core.MutationEvent{Action: core.MutationCreated, Source: "cli"})
	if v := b.view(); len(v.Rows) != 3 {
		t.Fatalf("remote event should trigger a reload, rows=%d", len(v.Rows))
	}
}

func TestViewShowsBannerOnPartialFailure(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	store.Fail(memory.OpListCategories, errors.New("boom"))
	b := &browser{t: t, srv: srv}

	v := b.view()
	if v.Error == "" || len(v.Categories) != 0 || len(v.Transactions) != 2 || v.Summary == nil {
		t.Fatalf("unexpected view: error=%q cats=%d txs=%d", v.Error, len(v.Categories), len(v.Transactions))
	}
	if v.Rows[0].Icon != "💸" {
		t.Errorf("icon should fall back by kind, got %s", v.Rows[0].Icon)
	}
	if !strings.Contains(b.do(http.MethodGet, "/", nil).Body.String(), "データの読み込みに失敗しました") {
		t.Error("banner not rendered")
	}
}

func TestFailedLoadRecoversOnNextView(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	store.Fail(memory.OpListTransactions, errors.New("connection refused"))
	b := &browser{t: t, srv: srv}

	body := b.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, viewmodel.ErrorBanner) || !strings.Contains(body, "0 件") {
		t.Fatal("first load should show the banner and no transactions")
	}

	store.Fail(memory.OpListTransactions, nil)
	v := b.view()
	if v.Error != "" || len(v.Transactions) != 2 {
		t.Fatalf("view after recovery: error=%q txs=%d", v.Error, len(v.Transactions))
	}
	body = b.do(http.MethodGet, "/", nil).Body.String()
	if strings.Contains(body, viewmodel.ErrorBanner) || !strings.Contains(body, "2 件") {
		t.Error("dashboard should have replaced the banner and the empty list")
	}
}

func TestDashboardShowsServerSideChanges(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}
	b.do(http.MethodGet, "/", nil)

	store.Seed(core.Transaction{Kind: core.Expense, Amount: core.MustAmount("650"), Category: "娯楽", Description: "映画", Date: core.NewDate(2024, 3, 14)})
	body := b.do(http.MethodGet, "/", nil).Body.String()
	if !strings.Contains(body, "映画") || !strings.Contains(body, "3 件") {
		t.Error("dashboard render should reload from the API")
	}
}

func TestReloadButton(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}
	if !strings.Contains(b.do(http.MethodGet, "/?type=income", nil).Body.String(), `action="/reload"`) {
		t.Fatal("dashboard should offer a reload button")
	}

	store.Seed(core.Transaction{Kind: core.Income, Amount: core.MustAmount("8000"), Category: "副業", Date: core.NewDate(2024, 3, 14)})
	if v := b.view(); len(v.Rows) != 2 {
		t.Fatalf("view should not reload on its own, rows=%d", len(v.Rows))
	}

	rec := b.do(http.MethodPost, "/reload", url.Values{})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/?type=income" {
		t.Fatalf("reload: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if v := b.view(); len(v.Rows) != 3 {
		t.Errorf("rows after reload = %d, want 3", len(v.Rows))
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, store := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	if rec := b.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rec.Code)
	}
	if rec := b.do(http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz status=%d body=%s", rec.Code, rec.Body.String())
	}

	store.Fail(memory.OpListCategories, errors.New("down"))
	if rec := b.do(http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz should fail without the API, got %d", rec.Code)
	}
}

func TestReadyRunsExtraChecks(t *testing.T) {
	srv, _ := newTestServer(t, Options{Readiness: []ReadinessCheck{
		{Name: "amqp", Check: func(context.Context) error { return errors.New("amqp connection closed") }},
	}})
	rec := (&browser{t: t, srv: srv}).do(http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "amqp connection closed") {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMetricsAndStatic(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv}

	if rec := b.do(http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pfm_") {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	if rec := b.do(http.MethodGet, "/static/style.css", nil); rec.Code != http.StatusOK {
		t.Fatalf("static status=%d", rec.Code)
	}
	if rec := b.do(http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rec.Code)
	}
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RequestsPerMin: 1})
	b := &browser{t: t, srv: srv}

	form := url.Values{"amount": {"0"}, "category": {"食費"}}
	if rec := b.do(http.MethodPost, "/transactions", form); rec.Code != http.StatusSeeOther {
		t.Fatalf("first POST status=%d", rec.Code)
	}
	rec := b.do(http.MethodPost, "/transactions", form)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second POST status=%d", rec.Code)
	}
}

func TestInvalidCookieGetsFreshSession(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	b := &browser{t: t, srv: srv, cookie: &http.Cookie{Name: SessionCookie, Value: "not-a-uuid"}}

	b.do(http.MethodGet, "/", nil)
	if b.cookie.Value == "not-a-uuid" {
		t.Fatal("invalid session id should be replaced")
	}
}
