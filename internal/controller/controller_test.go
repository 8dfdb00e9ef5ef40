package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/pkg/serverutils"
	"smartshop-be/internal/repository/memory"
	"smartshop-be/internal/service"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/llm/llmtest"
	"smartshop-be/pkg/retrieval"
	"smartshop-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type echoTurns struct{}

func (echoTurns) HandleTurn(ctx context.Context, sess *store.Session, input string) *agent.TurnResponse {
	sess.Memory.Append(store.RoleUser, input)
	return &agent.TurnResponse{Type: agent.ResponseText, Message: "Vous avez dit : " + input}
}

type stubIndex struct{}

func (stubIndex) Search(ctx context.Context, query string, opts ...retrieval.SearchOption) (retrieval.Result, error) {
	return retrieval.Result{}, nil
}
func (stubIndex) SearchProductsAsText(ctx context.Context, query string) string { return "" }
func (stubIndex) DeleteDocument(ctx context.Context, id string) (int, error)  { return 2, nil }
func (stubIndex) Documents(ctx context.Context) ([]retrieval.DocumentSummary, error) {
	return []retrieval.DocumentSummary{{DocumentID: "d1", Filename: "faq.pdf", Chunks: 4}}, nil
}
func (stubIndex) Stats(ctx context.Context) (retrieval.Stats, error) {
	return retrieval.Stats{Products: 3}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	log := logger.NewNopLogger()
	products := catalog.NewStaticStore([]catalog.Product{
		{ID: "p1", Name: "Chemise bleue", Category: "Vêtements", Price: 12000, Currency: "FCFA", InStock: true},
	})
	sessions := memory.NewSessionRepository(time.Minute, 10)
	chatSvc := service.NewChatService(sessions, echoTurns{}, products, nil, log, service.ChatServiceInfo{LLMProvider: "mistral", VectorStore: "memory"})

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	build := func(provider, model string) (llm.ChatProvider, error) { return llmtest.NewScripted(), nil }
	models := service.NewModelService(build, llmtest.NewScripted(), "mistral-small-latest", log)
	adminSvc := service.NewAdminService(service.NewPublisherService("INDEX_JOBS", pubSub), stubIndex{}, service.NewUsageService(nil, nil, log), models, nil, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewChatController(chatSvc).RegisterRoutes(api)
	NewAdminController(adminSvc, serverutils.NewJwtMiddleware(testSecret)).RegisterRoutes(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, serverutils.BaseResponse[json.RawMessage]) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var res serverutils.BaseResponse[json.RawMessage]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp, res
}

func TestSendMessage(t *testing.T) {
	app := newTestApp(t)

	resp, res := doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{Message: "bonjour", ConversationId: "c1"}, nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, res.Success)
	var data struct {
		ConversationId string `json:"conversation_id"`
		Type           string `json:"type"`
		Message        string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, "c1", data.ConversationId)
	assert.Equal(t, "text", data.Type)
	assert.Equal(t, "Vous avez dit : bonjour", data.Message)
}

func TestSendMessageValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing message", map[string]string{"conversation_id": "c1"}, http.StatusBadRequest},
		{"blank message", dto.ChatRequest{Message: "   "}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, res := doJSON(t, app, http.MethodPost, "/api/chat", tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.False(t, res.Success)
		})
	}
}

func TestCartEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/cart/add", dto.AddToCartRequest{ConversationId: "c1", ProductId: "p1"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, res := doJSON(t, app, http.MethodGet, "/api/cart?conversation_id=c1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cart dto.CartResponse
	require.NoError(t, json.Unmarshal(res.Data, &cart))
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, 12000.0, cart.Total)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/cart/add", dto.AddToCartRequest{ConversationId: "c1", ProductId: "zz"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/cart/clear?conversation_id=c1", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetAndFeedback(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/conversation/reset", dto.ResetConversationRequest{ConversationId: "unknown"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	doJSON(t, app, http.MethodPost, "/api/chat", dto.ChatRequest{Message: "salut", ConversationId: "c1"}, nil)
	resp, _ = doJSON(t, app, http.MethodPost, "/api/conversation/reset", dto.ResetConversationRequest{ConversationId: "c1"}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/feedback", dto.FeedbackRequest{ConversationId: "c1", Rating: 6}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, res := doJSON(t, app, http.MethodPost, "/api/feedback", dto.FeedbackRequest{ConversationId: "c1", Rating: 5}, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, res.Success)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, res := doJSON(t, app, http.MethodGet, "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h dto.HealthResponse
	require.NoError(t, json.Unmarshal(res.Data, &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "mistral", h.LLMProvider)
}

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAdminRequiresToken(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signedToken(t, "other"), http.StatusUnauthorized},
		{"valid", "Bearer " + signedToken(t, testSecret), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.auth != "" {
				headers["Authorization"] = tt.auth
			}
			resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/stats", nil, headers)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAdminDocumentEndpoints(t *testing.T) {
	app := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + signedToken(t, testSecret)}

	resp, res := doJSON(t, app, http.MethodPost, "/api/admin/documents", dto.UploadDocumentRequest{Filename: "guide.txt", Text: "Livraison sous 48h."}, auth)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var upload dto.UploadDocumentResponse
	require.NoError(t, json.Unmarshal(res.Data, &upload))
	assert.NotEmpty(t, upload.DocumentId)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/admin/documents", map[string]string{"text": "sans nom"}, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, res = doJSON(t, app, http.MethodDelete, "/api/admin/documents/"+upload.DocumentId, nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var del dto.DeleteDocumentResponse
	require.NoError(t, json.Unmarshal(res.Data, &del))
	assert.Equal(t, 2, del.DeletedChunks)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/admin/catalog/reindex", nil, auth)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/logs?level=NOPE", nil, auth)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/admin/usage", nil, auth)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminListDocuments(t *testing.T) {
	app := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + signedToken(t, testSecret)}

	resp, res := doJSON(t, app, http.MethodGet, "/api/admin/documents", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.DocumentListResponse
	require.NoError(t, json.Unmarshal(res.Data, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 4, list.TotalChunks)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "faq.pdf", list.Documents[0].Filename)
}

func TestAdminModelEndpoints(t *testing.T) {
	app := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + signedToken(t, testSecret)}

	resp, res := doJSON(t, app, http.MethodGet, "/api/admin/models", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var models dto.ModelsResponse
	require.NoError(t, json.Unmarshal(res.Data, &models))
	assert.Len(t, models.Providers["groq"], 4)
	assert.Equal(t, "mistral-small-latest", models.Active.Model)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing model", map[string]string{"provider": "groq"}, http.StatusBadRequest},
		{"unknown provider", dto.SwitchModelRequest{Provider: "acme", Model: "x"}, http.StatusBadRequest},
		{"unknown model", dto.SwitchModelRequest{Provider: "groq", Model: "gpt-9"}, http.StatusBadRequest},
		{"valid", dto.SwitchModelRequest{Provider: "groq", Model: "llama-3.1-8b-instant"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPost, "/api/admin/switch-model", tt.body, auth)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	_, res = doJSON(t, app, http.MethodGet, "/api/admin/models", nil, auth)
	require.NoError(t, json.Unmarshal(res.Data, &models))
	assert.Equal(t, "groq", models.Active.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", models.Active.Model)

	resp, res = doJSON(t, app, http.MethodPost, "/api/admin/usage/reset", nil, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset dto.UsageResetResponse
	require.NoError(t, json.Unmarshal(res.Data, &reset))
	assert.False(t, reset.ResetAt.IsZero())
}
