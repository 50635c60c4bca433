package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/observability"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// BotFunc adapts a function to the Bot interface.
type BotFunc func(ctx context.Context, act domain.Activity) (*domain.TurnResult, error)

func (f BotFunc) OnTurn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error) {
	return f(ctx, act)
}

func greetingBot(t *testing.T, opts ...botbuilder.Option) *botbuilder.Bot {
	t.Helper()
	root := domain.Dialog{
		ID: "root",
		Rules: []domain.Rule{
			domain.OnFallback(
				domain.Prompt("What is your name?", "user.name"),
				domain.SendText("Hello {{.user.name}}!"),
			),
		},
	}
	bot, err := botbuilder.New(memory.NewStore(), append([]botbuilder.Option{botbuilder.WithDialogs(root)}, opts...)...)
	require.NoError(t, err)
	return bot
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostMessage_Conversation(t *testing.T) {
	h := NewHandler(greetingBot(t))

	w := post(t, h, `{"conversation_id":"c1","user_id":"u1","text":"hi"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res domain.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"What is your name?"}, res.Texts())
	assert.True(t, res.Suspended)

	w = post(t, h, `{"conversation_id":"c1","user_id":"u1","text":"Ada"}`)
	require.Equal(t, http.StatusOK, w.Code)
	res = domain.TurnResult{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"Hello Ada!"}, res.Texts())
	assert.False(t, res.Suspended)
}

func TestPostMessage_DefaultsAndSanitizes(t *testing.T) {
	var got domain.Activity
	h := NewHandler(BotFunc(func(ctx context.Context, act domain.Activity) (*domain.TurnResult, error) {
		got = act
		return &domain.TurnResult{}, nil
	}), WithDefaultChannel("web"))

	w := post(t, h, `{"conversation_id":"c1","text":"ding\u0007"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "web", got.ChannelID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "ding", got.Text)
}

func TestPostMessage_BadRequests(t *testing.T) {
	h := NewHandler(greetingBot(t), WithMaxInputSize(8))

	tests := []struct {
		name string
		body string
	}{
		{"Malformed JSON", `{`},
		{"Missing Conversation", `{"text":"hi"}`},
		{"Input Too Large", `{"conversation_id":"c1","text":"far too long"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "bad_request", body.Code)
		})
	}
}

func TestPostMessage_BodyTooLarge(t *testing.T) {
	h := NewHandler(greetingBot(t), WithMaxBodySize(64))

	body := `{"conversation_id":"c1","text":"` + strings.Repeat("a", 1<<20) + `"}`
	w := post(t, h, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "too_large", resp.Code)

	w = post(t, h, `{"conversation_id":"c1","text":"hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostMessage_DefaultBodyLimitFollowsInputSize(t *testing.T) {
	h := NewHandler(greetingBot(t), WithMaxInputSize(8))

	w := post(t, h, `{"conversation_id":"c1","text":"`+strings.Repeat("a", 1<<20)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&ports.ConflictError{Keys: []string{"k"}}, http.StatusInternalServerError, "internal"},
		{errors.Join(domain.ErrStorageConflict, &ports.ConflictError{}), http.StatusConflict, "conflict"},
		{domain.ErrRecognitionFailure, http.StatusUnprocessableEntity, "unrecognized"},
		{domain.ErrUnknownDialog, http.StatusUnprocessableEntity, "unknown_dialog"},
		{domain.ErrExpression, http.StatusInternalServerError, "expression"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{context.Canceled, 499, "canceled"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestPostMessage_StrictRecognition(t *testing.T) {
	root := domain.Dialog{
		ID:    "root",
		Rules: []domain.Rule{domain.OnIntent("Greet", domain.SendText("hi"))},
	}
	bot, err := botbuilder.New(memory.NewStore(),
		botbuilder.WithDialogs(root),
		botbuilder.WithStrictRecognition(true),
	)
	require.NoError(t, err)

	w := post(t, NewHandler(bot), `{"conversation_id":"c1","text":"anything"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealthInfoAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	h := NewHandler(greetingBot(t, botbuilder.WithLifecycleHooks(metrics.Hooks())), WithGatherer(reg))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/info", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), botbuilder.Version)

	require.Equal(t, http.StatusOK, post(t, h, `{"conversation_id":"c1","text":"hi"}`).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "botbuilder_turns_total")
}

func TestMetricsDisabledByDefault(t *testing.T) {
	h := NewHandler(greetingBot(t))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(greetingBot(t))
	req := httptest.NewRequest(http.MethodOptions, "/api/messages", bytes.NewReader(nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(NewHandler(greetingBot(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream?conversation_id=c9&user_id=u9"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var reply StreamReply
	require.NoError(t, wsjson.Write(ctx, conn, domain.Activity{ID: "a1", Text: "hi"}))
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	assert.Equal(t, "a1", reply.ReplyTo)
	require.NotNil(t, reply.Result)
	assert.Equal(t, []string{"What is your name?"}, reply.Result.Texts())

	reply = StreamReply{}
	require.NoError(t, wsjson.Write(ctx, conn, domain.Activity{Text: "Grace"}))
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.NotNil(t, reply.Result)
	assert.Equal(t, []string{"Hello Grace!"}, reply.Result.Texts())

	reply = StreamReply{}
	require.NoError(t, wsjson.Write(ctx, conn, domain.Activity{ConversationID: "", Text: strings.Repeat("x", 5000)}))
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, "bad_request", reply.Error.Code)
}
