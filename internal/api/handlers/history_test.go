package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuschat/chat-service/internal/api/dto"
	"github.com/campuschat/chat-service/internal/api/handlers"
	"github.com/campuschat/chat-service/internal/api/middleware"
	"github.com/campuschat/chat-service/internal/domain/models"
	"github.com/campuschat/chat-service/internal/mocks"
	"github.com/campuschat/chat-service/internal/services/completion"
	"github.com/campuschat/chat-service/internal/services/history"
	"github.com/campuschat/chat-service/internal/services/title"
)

// devUserID matches the identity the middleware assumes when auth is off.
const devUserID = "00000000-0000-0000-0000-000000000000"

type titleCompleter struct{}

func (titleCompleter) Create(ctx context.Context, req *completion.ModelRequest) (*completion.CompletionChunk, error) {
	return &completion.CompletionChunk{ID: "title-1", Content: `{"title": "Generated Title"}`}, nil
}

type historyFixture struct {
	router  *gin.Engine
	service *history.Service
	db      *mocks.MemoryDocDB
}

func newHistoryFixture(t *testing.T) *historyFixture {
	t.Helper()

	db := mocks.NewMemoryDocDB()
	historyService := history.NewService(db, true)

	dispatcher := &scriptedDispatcher{chunks: []*completion.CompletionChunk{
		{ID: "cmpl-1", Content: "the answer"},
	}}
	conversationHandler := handlers.NewConversationHandler(
		chatServiceWith(dispatcher, false), &stubSessions{}, "chat_session")
	titles := title.NewGenerator(titleCompleter{}, "gpt-35-turbo-16k")
	h := handlers.NewHistoryHandler(historyService, titles, conversationHandler)

	router := gin.New()
	identity := middleware.NewIdentityMiddleware(false)
	group := router.Group("/history", identity.Identify())
	group.POST("/generate", h.Generate)
	group.POST("/update", h.Update)
	group.POST("/message_feedback", h.MessageFeedback)
	group.DELETE("/delete", h.Delete)
	group.GET("/list", h.List)
	group.POST("/read", h.Read)
	group.POST("/rename", h.Rename)
	group.DELETE("/delete_all", h.DeleteAll)
	group.POST("/clear", h.Clear)
	group.GET("/ensure", h.Ensure)

	return &historyFixture{router: router, service: historyService, db: db}
}

func (f *historyFixture) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *historyFixture) seedConversation(t *testing.T, id string) {
	t.Helper()
	_, err := f.service.CreateConversation(context.Background(), id, devUserID, "Seeded")
	require.NoError(t, err)
}

func TestHistoryGenerate_CreatesConversationAndPersistsUserMessage(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)

	// Act
	w := f.request(t, http.MethodPost, "/history/generate",
		`{"messages": [{"role": "user", "content": "when does the library open"}]}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		History struct {
			ConversationID string `json:"conversation_id"`
			Title          string `json:"title"`
			Date           string `json:"date"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "the answer", resp.Content)
	assert.NotEmpty(t, resp.History.ConversationID)
	assert.Equal(t, "Generated Title", resp.History.Title)
	assert.NotEmpty(t, resp.History.Date)

	messages, err := f.service.GetMessages(context.Background(), devUserID, resp.History.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "when does the library open", messages[0].Content)
}

func TestHistoryGenerate_ExistingConversationSkipsTitling(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")

	// Act
	w := f.request(t, http.MethodPost, "/history/generate",
		`{"conversation_id": "conv-1", "messages": [{"role": "user", "content": "follow-up"}]}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		History struct {
			ConversationID string `json:"conversation_id"`
			Title          string `json:"title"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.History.ConversationID)
	assert.Empty(t, resp.History.Title)
}

func TestHistoryGenerate_RequiresTrailingUserMessage(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")

	// Act
	w := f.request(t, http.MethodPost, "/history/generate",
		`{"conversation_id": "conv-1", "messages": [{"role": "assistant", "content": "hello"}]}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no user message found", body["error"])
}

func TestHistoryUpdate_PersistsAssistantAndToolMessages(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")

	// Act
	w := f.request(t, http.MethodPost, "/history/update",
		`{"conversation_id": "conv-1", "messages": [
			{"role": "user", "content": "question"},
			{"role": "tool", "content": "{\"citations\": []}"},
			{"role": "assistant", "id": "msg-a", "content": "answer"}
		]}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	messages, err := f.service.GetMessages(context.Background(), devUserID, "conv-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleTool, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, "msg-a", messages[1].ID)
}

func TestHistoryUpdate_MissingConversationID(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)

	// Act
	w := f.request(t, http.MethodPost, "/history/update",
		`{"messages": [{"role": "assistant", "content": "answer"}]}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no conversation_id found", body["error"])
}

func TestHistoryUpdate_RequiresTrailingAssistantMessage(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")

	// Act
	w := f.request(t, http.MethodPost, "/history/update",
		`{"conversation_id": "conv-1", "messages": [{"role": "user", "content": "question"}]}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no bot messages found", body["error"])
}

func TestHistoryMessageFeedback(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")
	_, err := f.service.CreateMessage(context.Background(), "msg-1", devUserID, "conv-1", models.RoleAssistant, "answer")
	require.NoError(t, err)

	// Act
	w := f.request(t, http.MethodPost, "/history/message_feedback",
		`{"message_id": "msg-1", "message_feedback": "positive"}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := f.service.UpdateMessageFeedback(context.Background(), devUserID, "msg-1", "positive")
	require.NoError(t, err)
	assert.Equal(t, "positive", updated.Feedback)
}

func TestHistoryMessageFeedback_UnknownMessageIs404(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)

	// Act
	w := f.request(t, http.MethodPost, "/history/message_feedback",
		`{"message_id": "missing", "message_feedback": "positive"}`)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryList_ReturnsSummaries(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	for i := 0; i < 3; i++ {
		f.seedConversation(t, fmt.Sprintf("conv-%d", i))
	}

	// Act
	w := f.request(t, http.MethodGet, "/history/list", "")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []dto.ConversationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	assert.Len(t, summaries, 3)
}

func TestHistoryRead_ReturnsMessages(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")
	_, err := f.service.CreateMessage(context.Background(), "msg-1", devUserID, "conv-1", models.RoleUser, "question")
	require.NoError(t, err)

	// Act
	w := f.request(t, http.MethodPost, "/history/read", `{"conversation_id": "conv-1"}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ConversationReadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-1", resp.ConversationID)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "question", resp.Messages[0].Content)
}

func TestHistoryRead_UnknownConversationIs404(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)

	// Act
	w := f.request(t, http.MethodPost, "/history/read", `{"conversation_id": "missing"}`)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryRename(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")

	// Act
	w := f.request(t, http.MethodPost, "/history/rename",
		`{"conversation_id": "conv-1", "title": "Renamed"}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var summary dto.ConversationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "Renamed", summary.Title)
}

func TestHistoryDelete_RemovesConversationAndMessages(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")
	_, err := f.service.CreateMessage(context.Background(), "msg-1", devUserID, "conv-1", models.RoleUser, "question")
	require.NoError(t, err)

	// Act
	w := f.request(t, http.MethodDelete, "/history/delete", `{"conversation_id": "conv-1"}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.db.Len())
}

func TestHistoryDeleteAll(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("conv-%d", i)
		f.seedConversation(t, id)
		_, err := f.service.CreateMessage(context.Background(), "msg-"+id, devUserID, id, models.RoleUser, "question")
		require.NoError(t, err)
	}

	// Act
	w := f.request(t, http.MethodDelete, "/history/delete_all", "")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, f.db.Len())
}

func TestHistoryClear_KeepsConversation(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)
	f.seedConversation(t, "conv-1")
	_, err := f.service.CreateMessage(context.Background(), "msg-1", devUserID, "conv-1", models.RoleUser, "question")
	require.NoError(t, err)

	// Act
	w := f.request(t, http.MethodPost, "/history/clear", `{"conversation_id": "conv-1"}`)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	conversation, err := f.service.GetConversation(context.Background(), devUserID, "conv-1")
	require.NoError(t, err)
	assert.NotNil(t, conversation)

	messages, err := f.service.GetMessages(context.Background(), devUserID, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestHistoryEnsure_Healthy(t *testing.T) {
	// Arrange
	f := newHistoryFixture(t)

	// Act
	w := f.request(t, http.MethodGet, "/history/ensure", "")

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHistory_WithoutStore(t *testing.T) {
	// Arrange
	conversationHandler := handlers.NewConversationHandler(
		chatServiceWith(&scriptedDispatcher{}, false), &stubSessions{}, "chat_session")
	h := handlers.NewHistoryHandler(nil, title.NewGenerator(titleCompleter{}, "gpt-4"), conversationHandler)

	router := gin.New()
	identity := middleware.NewIdentityMiddleware(false)
	router.GET("/history/list", identity.Identify(), h.List)
	router.GET("/history/ensure", identity.Identify(), h.Ensure)

	// Act
	listResp := httptest.NewRecorder()
	router.ServeHTTP(listResp, httptest.NewRequest(http.MethodGet, "/history/list", nil))
	ensureResp := httptest.NewRecorder()
	router.ServeHTTP(ensureResp, httptest.NewRequest(http.MethodGet, "/history/ensure", nil))

	// Assert
	assert.Equal(t, http.StatusUnprocessableEntity, listResp.Code)
	assert.Equal(t, http.StatusNotFound, ensureResp.Code)
}
