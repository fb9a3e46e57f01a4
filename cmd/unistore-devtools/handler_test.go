package main

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/spetersoncode/unistore/devtools"
	"github.com/spetersoncode/unistore/store"
)

func newTestHandler(t *testing.T, initial store.State) (*Handler, *store.Store) {
	t.Helper()
	s := store.New(initial)
	b := devtools.New(s)
	t.Cleanup(b.Close)
	return NewHandler(b), s
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_State(t *testing.T) {
	h, s := newTestHandler(t, store.State{"user": map[string]any{"name": "ada"}})

	rec := do(h, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"name":"ada"}}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/state?path=user.name", "")
	assert.JSONEq(t, `"ada"`, rec.Body.String())

	rec = do(h, http.MethodPost, "/state", `{"state":{"count":1},"action":"remote"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"name":"ada"},"count":1}`, rec.Body.String())

	rec = do(h, http.MethodPost, "/state", `{"state":{"only":true},"overwrite":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.State{"only": true}, s.Get())

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/state", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/state", `{}`).Code)

	s.Destroy()
	assert.Equal(t, http.StatusGone, do(h, http.MethodPost, "/state", `{"state":{}}`).Code)
}

func TestHandler_HistoryAndJump(t *testing.T) {
	h, s := newTestHandler(t, store.State{"count": 0})
	s.Set(store.State{"count": 1}, store.WithAction("inc"))

	rec := do(h, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := gjson.Parse(rec.Body.String())
	assert.Equal(t, []any{devtools.InitAction, "inc"}, history.Get("#.action").Value())

	rec = do(h, http.MethodPost, "/jump", `{"index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
	assert.EqualValues(t, 0, s.Get()["count"])

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/jump", `{"index":7}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/jump", `{}`).Code)
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := do(corsMiddleware(h), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// readEvent reads the next SSE event and returns its type and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, gjson.Result) {
	t.Helper()
	var typ, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && typ != "":
			return typ, gjson.Parse(data)
		}
	}
}

func TestHandler_Events(t *testing.T) {
	h, s := newTestHandler(t, store.State{"count": 0})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?threadId=t1&runId=r1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	typ, data := readEvent(t, r)
	assert.Equal(t, "RUN_STARTED", typ)
	assert.Equal(t, "t1", data.Get("threadId").String())

	typ, data = readEvent(t, r)
	assert.Equal(t, "STATE_SNAPSHOT", typ)
	assert.Equal(t, int64(0), data.Get("snapshot.count").Int())

	s.Set(store.State{"count": 5})

	typ, data = readEvent(t, r)
	assert.Equal(t, "STATE_DELTA", typ)
	assert.Equal(t, "/count", data.Get("delta.0.path").String())
	assert.Equal(t, int64(5), data.Get("delta.0.value").Int())
}
