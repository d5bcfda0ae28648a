package serverhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sheet-agent/internal/agent"
	"sheet-agent/internal/config"
	"sheet-agent/internal/query"
	"sheet-agent/internal/session"
	"sheet-agent/internal/standardize"
	"sheet-agent/internal/workbook"
)

// sumPlanner: первый шаг: сумма sales, второй: ответ из наблюдения.
type sumPlanner struct{}

func (sumPlanner) Next(_ context.Context, tr agent.Transcript) (agent.Step, error) {
	if len(tr.Steps) == 0 {
		return agent.Step{Action: agent.ActionQuery, Query: query.Query{Aggregate: "sum", Measure: "sales"}}, nil
	}
	return agent.Step{Action: agent.ActionAnswer, Answer: strings.TrimSpace(tr.Steps[0].Observation)}, nil
}

const salesCSV = "Order_Date,Zone,Revenue\n2024-01-05,North,30\n2024-01-06,South,12\n"

func newRouter(ag *agent.Agent, maxMB int) http.Handler {
	cfg := config.Config{AllowOrigins: []string{"*"}, MaxUploadMB: maxMB}
	svc := workbook.NewService(
		standardize.New(standardize.DefaultRegistry()),
		session.New[workbook.Workbook](time.Minute, 0),
		ag,
		zerolog.Nop(),
	)
	return NewRouter(cfg, zerolog.Nop(), svc)
}

func newServer(t *testing.T, ag *agent.Agent, maxMB int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(ag, maxMB))
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	return &body, mw.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, filename, content string) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, filename, content)
	resp, err := http.Post(srv.URL+"/workbooks", ct, body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

type uploadResp struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Sheets []struct {
		Name    string               `json:"name"`
		Columns []string             `json:"columns"`
		Rows    int                  `json:"rows"`
		Renames []standardize.Rename `json:"renames"`
		Preview [][]string           `json:"preview"`
	} `json:"sheets"`
	Error string `json:"error"`
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newServer(t, nil, 1)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("%d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestUploadGetQueryDelete(t *testing.T) {
	srv := newServer(t, agent.New(sumPlanner{}, 3, zerolog.Nop()), 1)

	resp := upload(t, srv, "sales.csv", salesCSV)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var up uploadResp
	decode(t, resp, &up)
	if up.ID == "" || len(up.Sheets) != 1 {
		t.Fatalf("upload = %+v", up)
	}
	if got := strings.Join(up.Sheets[0].Columns, ","); got != "date,region,sales" {
		t.Errorf("columns = %s", got)
	}
	if len(up.Sheets[0].Renames) != 3 || up.Sheets[0].Renames[2].From != "Revenue" {
		t.Errorf("renames = %+v", up.Sheets[0].Renames)
	}
	if !strings.Contains(up.Prefix, "df0 from sheet 'sales'") {
		t.Errorf("prefix = %q", up.Prefix)
	}

	resp, err := http.Get(srv.URL + "/workbooks/" + up.ID + "?preview=1")
	if err != nil {
		t.Fatal(err)
	}
	var got uploadResp
	decode(t, resp, &got)
	if resp.StatusCode != http.StatusOK || len(got.Sheets[0].Preview) != 1 || got.Sheets[0].Rows != 2 {
		t.Fatalf("get = %d %+v", resp.StatusCode, got)
	}

	resp, err = http.Post(srv.URL+"/workbooks/"+up.ID+"/query", "application/json", strings.NewReader(`{"query":"total sales?"}`))
	if err != nil {
		t.Fatal(err)
	}
	var ans struct {
		Answer string        `json:"answer"`
		Steps  []agent.Trace `json:"steps"`
	}
	decode(t, resp, &ans)
	if resp.StatusCode != http.StatusOK || !strings.Contains(ans.Answer, "42") || len(ans.Steps) != 1 {
		t.Fatalf("query = %d %+v", resp.StatusCode, ans)
	}

	resp, err = http.Post(srv.URL+"/workbooks/"+up.ID+"/query", "application/x-www-form-urlencoded", strings.NewReader("query="))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/workbooks/"+up.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/workbooks/" + up.ID)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d", resp.StatusCode)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := newServer(t, nil, 1)

	resp := upload(t, srv, "notes.txt", "hello")
	var body uploadResp
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusBadRequest || !strings.HasPrefix(body.Error, "Error loading or processing file:") ||
		!strings.Contains(body.Error, "password-protected") {
		t.Fatalf("unsupported = %d %q", resp.StatusCode, body.Error)
	}

	big, ct := multipartBody(t, "big.csv", "a\n"+strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/workbooks", big)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	newRouter(nil, 1).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("too large = %d %s", rec.Code, rec.Body.String())
	}

	resp, err := http.Post(srv.URL+"/workbooks", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("not multipart = %d", resp.StatusCode)
	}
}

func TestQueryWithoutAgent(t *testing.T) {
	srv := newServer(t, nil, 1)
	var up uploadResp
	decode(t, upload(t, srv, "sales.csv", salesCSV), &up)

	resp, err := http.Post(srv.URL+"/workbooks/"+up.ID+"/query", "application/json", strings.NewReader(`{"query":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/workbooks/nope/query", "application/json", strings.NewReader(`{"query":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unknown id without agent = %d", resp.StatusCode)
	}
}

type errPlanner struct{ err error }

func (p errPlanner) Next(ctx context.Context, _ agent.Transcript) (agent.Step, error) {
	if err := ctx.Err(); err != nil {
		return agent.Step{}, err
	}
	return agent.Step{}, p.err
}

func uploadTo(t *testing.T, h http.Handler) string {
	t.Helper()
	body, ct := multipartBody(t, "sales.csv", salesCSV)
	req := httptest.NewRequest(http.MethodPost, "/workbooks", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var up uploadResp
	if err := json.Unmarshal(rec.Body.Bytes(), &up); err != nil || up.ID == "" {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	return up.ID
}

func TestQueryCancelledAndTimedOut(t *testing.T) {
	h := newRouter(agent.New(errPlanner{err: fmt.Errorf("openai chat completion: %w", context.DeadlineExceeded)}, 3, zerolog.Nop()), 1)
	id := uploadTo(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/workbooks/"+id+"/query", strings.NewReader(`{"query":"total?"}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 499 {
		t.Fatalf("cancelled: status = %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/workbooks/"+id+"/query", strings.NewReader(`{"query":"total?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("timeout: status = %d, body %s", rec.Code, rec.Body.String())
	}

	h = newRouter(agent.New(errPlanner{err: errors.New("upstream 500")}, 3, zerolog.Nop()), 1)
	id = uploadTo(t, h)
	req = httptest.NewRequest(http.MethodPost, "/workbooks/"+id+"/query", strings.NewReader(`{"query":"total?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("planner failure: status = %d", rec.Code)
	}
}
