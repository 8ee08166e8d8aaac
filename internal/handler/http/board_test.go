package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"public-clipboard/internal/domain"
	httpHandler "public-clipboard/internal/handler/http"
	"public-clipboard/internal/hub"
	"public-clipboard/internal/repository"
	"public-clipboard/internal/service"
	"public-clipboard/internal/store"
)

type fakeBoardRepo struct {
	boards map[int]*domain.Board
}

func (f *fakeBoardRepo) Load(_ context.Context, boardID int) (*domain.Board, error) {
	b, ok := f.boards[boardID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b.Clone(), nil
}

func (f *fakeBoardRepo) Save(_ context.Context, board *domain.Board) error {
	f.boards[board.ID] = board.Clone()
	return nil
}

type fakeBanRepo struct {
	banned map[string]bool
}

func (f *fakeBanRepo) Ban(_ context.Context, _ int, hashedIP string, _ time.Duration) error {
	if f.banned == nil {
		f.banned = make(map[string]bool)
	}
	f.banned[hashedIP] = true
	return nil
}

func (f *fakeBanRepo) IsBanned(_ context.Context, _ int, hashedIP string) (bool, error) {
	return f.banned[hashedIP], nil
}

type fakeEventRepo struct{}

func (f *fakeEventRepo) Push(_ context.Context, _ domain.AnalyticsEvent) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *service.BoardService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	svc := service.NewBoardService(
		store.NewBoardStore(&fakeBoardRepo{boards: make(map[int]*domain.Board)}, log),
		&fakeBanRepo{},
		&fakeEventRepo{},
		nil,
		domain.Canvas{Width: 3840, Height: 2160},
		service.BoardLimits{
			MinBoardID:         0,
			MaxBoardID:         199,
			MaxContentLength:   10000,
			HistoryLimit:       500,
			DefaultBanDuration: 24 * time.Hour,
		},
		"publicclipboard",
		log,
	)
	h := hub.NewHub(svc, nil, log)
	handler := httpHandler.NewBoardHandler(svc, h)

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/api/boards/:id", handler.GetBoard)
	router.GET("/api/boards/:id/history", handler.GetHistory)
	router.POST("/api/boards/:id/actions", handler.PostAction)
	return router, svc
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.NotZero(t, resp["time"])
}

func TestGetBoard_InvalidID(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/boards/abc", "/api/boards/200", "/api/boards/-1"} {
		w := doRequest(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
		assert.Contains(t, w.Body.String(), "Invalid board id")
	}
}

func TestGetBoard_FreshBoard(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/boards/5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var board domain.Board
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Equal(t, 5, board.ID)
	assert.Empty(t, board.Objects)
}

func TestGetHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/boards/5/history", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp["history"])
}

func TestPostAction_Create(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"type":"create_object","payload":{"coordinates":{"x":10,"y":10},"size":{"width":100,"height":50},"content":"via rest"}}`
	w := doRequest(router, http.MethodPost, "/api/boards/1/actions", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)

	// 对象确实落在画板上
	w = doRequest(router, http.MethodGet, "/api/boards/1", "")
	var board domain.Board
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	require.Len(t, board.Objects, 1)
	assert.Equal(t, "via rest", board.Objects[0].Content)
	assert.Equal(t, "Anonymous", board.Objects[0].CreatedBy)
}

func TestPostAction_CollisionMapsTo400(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"type":"create_object","payload":{"coordinates":{"x":0,"y":0},"size":{"width":100,"height":100}}}`
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/boards/1/actions", body).Code)

	overlap := `{"type":"create_object","payload":{"coordinates":{"x":50,"y":50},"size":{"width":100,"height":100}}}`
	w := doRequest(router, http.MethodPost, "/api/boards/1/actions", overlap)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Object overlaps with existing content")
}

func TestPostAction_DeleteMissingMapsTo404(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"type":"delete_object","payload":{"id":"ghost"}}`
	w := doRequest(router, http.MethodPost, "/api/boards/1/actions", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Object not found")
}

func TestPostAction_UnknownType(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/boards/1/actions", `{"type":"explode","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown action type")
}

func TestPostAction_BannedGets403(t *testing.T) {
	router, svc := newTestRouter(t)

	// 预先封禁转发头里的地址
	require.NoError(t, svc.Ban(context.Background(), 1, "203.0.113.4", time.Hour))

	body := `{"type":"copy_content","payload":{"id":"x"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/boards/1/actions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.4")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You are banned from this board")
}
