package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensy/internal/capture"
	"expensy/internal/core"
	"expensy/internal/ledger"
	"expensy/internal/middleware/ratelimit"
	"expensy/internal/report"
	"expensy/internal/storage/memory"
)

type fixedExtractor struct {
	x core.Extraction
}

func (f fixedExtractor) Suggest(context.Context, core.Image) (core.Extraction, bool) {
	return f.x, !f.x.Empty()
}

type testEnv struct {
	srv    *Server
	ledger *ledger.Ledger
}

func newTestEnv(t *testing.T, limit ratelimit.Config) *testEnv {
	t.Helper()
	l, err := ledger.Open(context.Background(), memory.New())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	amount := core.Money{Cents: 1234}
	food := core.CategoryFood
	captures := capture.NewManager(l, fixedExtractor{x: core.Extraction{Amount: &amount, Category: &food}}, nil)
	reports, err := report.New()
	if err != nil {
		t.Fatalf("report.New: %v", err)
	}
	srv := NewServer(":0", Deps{Ledger: l, Captures: captures, Reports: reports, UploadLimit: limit})
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		captures.Close()
	})
	return &testEnv{srv: srv, ledger: l}
}

func (e *testEnv) do(t *testing.T, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, target, "application/json", []byte(body))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func (e *testEnv) createExpense(t *testing.T, body string) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)["id"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "ok" {
		t.Errorf("status = %v", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "expensy_ledger_records") {
		t.Errorf("metrics status = %d, body lacks ledger gauge", rec.Code)
	}
}

func TestProbeRejected(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	if rec := env.do(t, http.MethodGet, "/.env", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	id := env.createExpense(t, `{"date":"2024-05-01","amount":"45,90","category":"combustivel","description":" posto "}`)

	rec := env.do(t, http.MethodGet, "/api/expenses", "", nil)
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	got := list[0]
	if got["id"] != id || got["amount"] != 45.9 || got["category"] != "Combustível" ||
		got["description"] != "posto" || got["date"] != "2024-05-01" || got["formatted"] != "R$ 45,90" {
		t.Errorf("unexpected record %v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/expenses/"+id, "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["id"] != id {
		t.Errorf("get status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/expenses/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get unknown status = %d", rec.Code)
	}
}

func TestCreateExpenseWithReceipt(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 40, 20))

	id := env.createExpense(t, `{"amount":12,"category":"Lavagem","receiptImage":"`+uri+`"}`)
	e, ok := env.ledger.Get(id)
	if !ok || !e.HasReceipt() || e.ReceiptImage.MIMEType != "image/jpeg" {
		t.Fatalf("receipt not normalized: %+v", e.ReceiptImage)
	}
}

func TestCreateExpenseRejected(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	tests := []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{"malformed", `{`, http.StatusBadRequest, ""},
		{"unknown field", `{"amount":"10","tip":1}`, http.StatusBadRequest, ""},
		{"bad amount", `{"amount":"abc"}`, http.StatusUnprocessableEntity, "amount"},
		{"zero amount", `{"amount":0}`, http.StatusUnprocessableEntity, "amount"},
		{"missing amount", `{"category":"Outros"}`, http.StatusUnprocessableEntity, "amount"},
		{"negative amount", `{"amount":-5}`, http.StatusUnprocessableEntity, "amount"},
		{"amount beyond int64 cents", `{"amount":184467440737095516.17}`, http.StatusUnprocessableEntity, "amount"},
		{"amount above ceiling", `{"amount":"1000000000,01"}`, http.StatusUnprocessableEntity, "amount"},
		{"bad category", `{"amount":"10","category":"Viagem"}`, http.StatusUnprocessableEntity, "category"},
		{"bad date", `{"amount":"10","date":"01/05/2024"}`, http.StatusUnprocessableEntity, "date"},
		{"bad receipt", `{"amount":"10","receiptImage":"data:image/png;base64,bm9wZQ=="}`, http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, http.MethodPost, "/api/expenses", tt.body)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			if tt.field != "" {
				detail := decode(t, rec)["error"].(map[string]any)
				if detail["field"] != tt.field {
					t.Errorf("field = %v, want %s", detail["field"], tt.field)
				}
			}
		})
	}
	if env.ledger.Len() != 0 {
		t.Errorf("rejected input created %d records", env.ledger.Len())
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	if rec := env.doJSON(t, http.MethodPut, "/api/settings", `{"userName":"Ana","monthlyAdvance":"500,00"}`); rec.Code != http.StatusOK {
		t.Fatalf("settings status = %d: %s", rec.Code, rec.Body.String())
	}
	env.createExpense(t, `{"amount":"450.50","category":"Combustível"}`)
	env.createExpense(t, `{"amount":60,"category":"Alimentação","isPersonalMoney":true}`)

	rec := env.do(t, http.MethodGet, "/api/summary?recent=1", "", nil)
	s := decode(t, rec)
	if s["count"] != 2.0 || s["totalSpent"] != 510.5 || s["advance"] != 500.0 || s["balance"] != -10.5 {
		t.Errorf("unexpected totals %v", s)
	}
	if s["overLimit"] != true || s["personalMoney"] != 60.0 {
		t.Errorf("overLimit/personalMoney = %v/%v", s["overLimit"], s["personalMoney"])
	}
	if recent := s["recent"].([]any); len(recent) != 1 || recent[0].(map[string]any)["amount"] != 60.0 {
		t.Errorf("recent = %v", recent)
	}
	if cats := s["byCategory"].([]any); len(cats) != 2 {
		t.Errorf("byCategory = %v", cats)
	}
}

func TestRemoveNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	id := env.createExpense(t, `{"amount":"10"}`)

	stage := func() map[string]any {
		rec := env.do(t, http.MethodDelete, "/api/expenses/"+id, "", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("stage status = %d", rec.Code)
		}
		return decode(t, rec)
	}

	a := stage()
	if a["kind"] != "remove" || a["title"] != "Excluir Nota?" || a["confirmLabel"] != "Sim, Excluir" {
		t.Errorf("unexpected prompt %v", a)
	}
	if env.ledger.Len() != 1 {
		t.Fatal("staging must not remove anything")
	}

	rec := env.do(t, http.MethodPost, a["cancelUrl"].(string), "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "cancelled" || env.ledger.Len() != 1 {
		t.Fatalf("cancel: status %d, len %d", rec.Code, env.ledger.Len())
	}

	a = stage()
	if rec := env.do(t, http.MethodGet, "/api/actions/"+a["id"].(string), "", nil); rec.Code != http.StatusOK {
		t.Errorf("get action status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, a["confirmUrl"].(string), "", nil)
	if rec.Code != http.StatusOK || env.ledger.Len() != 0 {
		t.Fatalf("confirm: status %d, len %d", rec.Code, env.ledger.Len())
	}
	if rec := env.do(t, http.MethodPost, a["confirmUrl"].(string), "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second confirm status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/expenses/"+id, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("stage unknown id status = %d, want 404", rec.Code)
	}
}

func TestClearAndReset(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.doJSON(t, http.MethodPut, "/api/settings", `{"userName":"Ana","monthlyAdvance":100}`)
	env.createExpense(t, `{"amount":"10"}`)
	env.createExpense(t, `{"amount":"20"}`)

	a := decode(t, env.do(t, http.MethodDelete, "/api/expenses", "", nil))
	if a["kind"] != "clear" {
		t.Fatalf("kind = %v", a["kind"])
	}
	env.do(t, http.MethodPost, a["confirmUrl"].(string), "", nil)
	if env.ledger.Len() != 0 || env.ledger.Settings().UserName != "Ana" {
		t.Fatalf("clear: len %d, settings %+v", env.ledger.Len(), env.ledger.Settings())
	}

	a = decode(t, env.do(t, http.MethodPost, "/api/reset", "", nil))
	if a["kind"] != "reset" {
		t.Fatalf("kind = %v", a["kind"])
	}
	env.do(t, http.MethodPost, a["confirmUrl"].(string), "", nil)
	if got := env.ledger.Settings(); got.UserName != core.DefaultUserName || !got.MonthlyAdvance.IsZero() {
		t.Errorf("reset settings = %+v", got)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rec := env.doJSON(t, http.MethodPut, "/api/settings", `{"monthlyAdvance":-1}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative advance status = %d", rec.Code)
	}

	qr := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 30, 30))
	rec = env.doJSON(t, http.MethodPut, "/api/settings/pix", `{"image":"`+qr+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("pix status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["pixQrCode"].(string); !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("pixQrCode = %.40q", got)
	}

	env.do(t, http.MethodDelete, "/api/settings/pix", "", nil)
	if env.ledger.Settings().PixQRCode != nil {
		t.Error("pix not removed")
	}
}

func TestDraftFlow(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rec := env.do(t, http.MethodPost, "/api/drafts", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status = %d", rec.Code)
	}
	d := decode(t, rec)
	id := d["id"].(string)
	if d["category"] != "Estacionamento" || d["state"] != "editing" {
		t.Errorf("blank draft = %v", d)
	}
	base := "/api/drafts/" + id

	rec = env.doJSON(t, http.MethodPut, base, `{"amount":"10","description":"almoço"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, base+"/receipt", "image/png", pngBytes(t, 64, 48))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("receipt status = %d: %s", rec.Code, rec.Body.String())
	}

	d = decode(t, env.do(t, http.MethodGet, base+"?wait=1", "", nil))
	if d["amount"] != 12.34 || d["category"] != "Alimentação" || d["state"] != "editing" || d["hasReceipt"] != true {
		t.Fatalf("after extraction = %v", d)
	}
	if s := d["suggested"].([]any); len(s) != 2 {
		t.Errorf("suggested = %v", s)
	}

	rec = env.do(t, http.MethodPost, base+"/submit", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body.String())
	}
	e := decode(t, rec)
	if e["amount"] != 12.34 || e["description"] != "almoço" || e["hasReceipt"] != true {
		t.Errorf("submitted = %v", e)
	}
	if rec := env.do(t, http.MethodGet, base, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("draft after submit status = %d, want 404", rec.Code)
	}
}

func TestDraftErrors(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	id := decode(t, env.do(t, http.MethodPost, "/api/drafts", "", nil))["id"].(string)
	base := "/api/drafts/" + id

	if rec := env.do(t, http.MethodPost, base+"/receipt", "image/png", []byte("not an image")); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("garbage receipt status = %d, want 422", rec.Code)
	}
	if rec := env.doJSON(t, http.MethodPut, base, `{"category":"Viagem"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad category status = %d, want 422", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, base+"/submit", "", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("submit without amount status = %d, want 422", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/drafts/missing", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown draft status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, base, "", nil); rec.Code != http.StatusNoContent {
		t.Errorf("discard status = %d", rec.Code)
	}
	if env.ledger.Len() != 0 {
		t.Error("no record should exist")
	}
}

func TestReceiptUploadRateLimited(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{Requests: 1, Period: time.Minute})
	id := decode(t, env.do(t, http.MethodPost, "/api/drafts", "", nil))["id"].(string)
	img := pngBytes(t, 8, 8)

	if rec := env.do(t, http.MethodPost, "/api/drafts/"+id+"/receipt", "image/png", img); rec.Code != http.StatusAccepted {
		t.Fatalf("first upload status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/drafts/"+id+"/receipt", "image/png", img); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second upload status = %d, want 429", rec.Code)
	}
}

func TestExports(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.createExpense(t, `{"amount":"45,90","category":"Combustível","date":"2024-05-01"}`)

	rec := env.do(t, http.MethodGet, "/export/sheet.csv", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != report.ContentTypeCSV {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, "attachment;") || !strings.Contains(got, "Planilha_") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}) || !strings.Contains(rec.Body.String(), "01/05/2024;Combustível;;45,90") {
		t.Errorf("csv body = %q", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("exports must not be cached")
	}

	rec = env.do(t, http.MethodGet, "/export/report.html?inline=1", "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline;") {
		t.Errorf("html status = %d, disposition %q", rec.Code, rec.Header().Get("Content-Disposition"))
	}

	rec = env.do(t, http.MethodGet, "/export/sheet.xlsx", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != report.ContentTypeXLSX {
		t.Errorf("xlsx status = %d", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/export/report.pdf", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown export status = %d", rec.Code)
	}
}
