package game

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"code-vault-go/internal/auth"
)

type testAPI struct {
	server *httptest.Server
	ticks  *manualTicks
	store  *MockOutcomeStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := new(MockOutcomeStore)
	store.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()

	service, ticks := newTestService(t, store)
	handler := NewHandler(service, auth.NewService([]byte("test-secret"), time.Hour), discardLogger())
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(func() {
		server.Close()
		service.Close()
	})
	return &testAPI{server: server, ticks: ticks, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) create(t *testing.T) CreateSessionResponse {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[CreateSessionResponse](t, resp)
}

func TestHandlerPlaysAGame(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, created.SessionID, created.State.ID)
	assert.Equal(t, StatusInactive, created.State.Status)

	base := "/sessions/" + created.SessionID
	for i, d := range created.State.Secret {
		resp := api.do(t, http.MethodPost, base+"/insert", created.Token, map[string]int{"index": i, "value": d})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp := api.do(t, http.MethodPost, base+"/delete", created.Token, map[string]int{"index": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[Mutation](t, resp)
	assert.Equal(t, created.State.Secret[0], m.Value)

	resp = api.do(t, http.MethodPost, base+"/insert", created.Token, map[string]int{"index": 0, "value": created.State.Secret[0]})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	api.ticks.FireN(2)
	resp = api.do(t, http.MethodPost, base+"/search", created.Token, SearchRequest{Pattern: patternText(created.State.Secret)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[SearchOutcome](t, resp)
	assert.True(t, out.Won)
	assert.Equal(t, 2, out.Elapsed)

	resp = api.do(t, http.MethodGet, base, created.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusEnded, decode[State](t, resp).Status)

	resp = api.do(t, http.MethodPost, base+"/insert", created.Token, map[string]int{"index": 0, "value": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "game_over", decode[errorResponse](t, resp).Code)

	resp = api.do(t, http.MethodPost, base+"/reset", created.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusInactive, decode[State](t, resp).Status)

	resp = api.do(t, http.MethodDelete, base, created.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = api.do(t, http.MethodGet, base, created.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerErrors(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t)
	other := api.create(t)
	base := "/sessions/" + created.SessionID

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"No token", http.MethodGet, base, "", nil, http.StatusUnauthorized, ""},
		{"Token for another session", http.MethodGet, base, other.Token, nil, http.StatusForbidden, ""},
		{"Missing value", http.MethodPost, base + "/insert", created.Token, map[string]int{"index": 0}, http.StatusBadRequest, "bad_request"},
		{"Invalid value", http.MethodPost, base + "/insert", created.Token, map[string]int{"index": 0, "value": 12}, http.StatusUnprocessableEntity, "invalid_value"},
		{"Index out of range", http.MethodPost, base + "/insert", created.Token, map[string]int{"index": 3, "value": 1}, http.StatusUnprocessableEntity, "index_out_of_range"},
		{"Delete from empty", http.MethodPost, base + "/delete", created.Token, map[string]int{"index": 0}, http.StatusUnprocessableEntity, "empty_sequence"},
		{"Bad pattern", http.MethodPost, base + "/search", created.Token, SearchRequest{Pattern: "x"}, http.StatusUnprocessableEntity, "invalid_pattern"},
		{"Missing index", http.MethodPost, base + "/delete", created.Token, map[string]int{}, http.StatusBadRequest, "bad_request"},
		{"Bad limit", http.MethodGet, "/outcomes/fastest?limit=-1", "", nil, http.StatusBadRequest, "bad_request"},
		{"Non-numeric limit", http.MethodGet, "/outcomes/fastest?limit=ten", "", nil, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[errorResponse](t, resp).Code)
			}
		})
	}
}

func TestHandlerBadJSON(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t)

	req, err := http.NewRequest(http.MethodPost, api.server.URL+"/sessions/"+created.SessionID+"/insert", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+created.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bad_request", decode[errorResponse](t, resp).Code)
}

func TestHandlerFastestOutcomes(t *testing.T) {
	api := newTestAPI(t)
	want := []Outcome{{ID: "x", Won: true, Elapsed: 3, RankColor: "Red"}}
	api.store.On("Fastest", mock.Anything, 3).Return(want, nil).Once()

	resp := api.do(t, http.MethodGet, "/outcomes/fastest?limit=3", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[[]Outcome](t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, "Red", got[0].RankColor)
}

func TestHandlerFastestOutcomesClampsLimit(t *testing.T) {
	api := newTestAPI(t)
	api.store.On("Fastest", mock.Anything, MaxFastestLimit).Return([]Outcome{}, nil).Once()

	resp := api.do(t, http.MethodGet, "/outcomes/fastest?limit=1099511627776", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	api.store.AssertExpectations(t)
}

func TestHandlerHealth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerStreamsEvents(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t)

	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") +
		"/sessions/" + created.SessionID + "/events?token=" + created.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the subscription is registered before the upgrade completes
	resp := api.do(t, http.MethodPost, "/sessions/"+created.SessionID+"/insert", created.Token, map[string]int{"index": 0, "value": 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var render *RenderPayload
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for render == nil {
		var ev struct {
			Type    EventType       `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == EventTypeRender {
			var p RenderPayload
			require.NoError(t, json.Unmarshal(ev.Payload, &p))
			render = &p
		}
	}
	assert.Equal(t, []int{8}, render.Snapshot)
	assert.Equal(t, AnimationInsert, render.Animation.Type)

	resp = api.do(t, http.MethodDelete, "/sessions/"+created.SessionID, created.Token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
	}
}

func TestHandlerStreamRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	created := api.create(t)

	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/sessions/" + created.SessionID + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
