package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"public-clipboard/internal/domain"
	"public-clipboard/internal/dto"
	"public-clipboard/internal/repository"
	"public-clipboard/internal/service"
	"public-clipboard/internal/store"
)

// --- 手写 Fake，形状与仓库接口一致 ---

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

type banCall struct {
	boardID  int
	hashedIP string
	duration time.Duration
}

type fakeBanRepo struct {
	banned map[string]bool // key: hashedIP
	calls  []banCall
}

func (f *fakeBanRepo) Ban(_ context.Context, boardID int, hashedIP string, duration time.Duration) error {
	if f.banned == nil {
		f.banned = make(map[string]bool)
	}
	f.banned[hashedIP] = true
	f.calls = append(f.calls, banCall{boardID: boardID, hashedIP: hashedIP, duration: duration})
	return nil
}

func (f *fakeBanRepo) IsBanned(_ context.Context, _ int, hashedIP string) (bool, error) {
	return f.banned[hashedIP], nil
}

type fakeEventRepo struct {
	events []domain.AnalyticsEvent
}

func (f *fakeEventRepo) Push(_ context.Context, event domain.AnalyticsEvent) error {
	f.events = append(f.events, event)
	return nil
}

type testEnv struct {
	svc    *service.BoardService
	boards *fakeBoardRepo
	bans   *fakeBanRepo
	events *fakeEventRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	boards := &fakeBoardRepo{boards: make(map[int]*domain.Board)}
	bans := &fakeBanRepo{}
	events := &fakeEventRepo{}

	svc := service.NewBoardService(
		store.NewBoardStore(boards, log),
		bans,
		events,
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
	return &testEnv{svc: svc, boards: boards, bans: bans, events: events}
}

var anon = service.Actor{UserID: "user-1-1", Label: "Anonymous #1", IP: "203.0.113.4"}

func createPayload(x, y, w, h float64, content string) dto.CreateObjectPayload {
	return dto.CreateObjectPayload{
		Coordinates: domain.Coordinates{X: x, Y: y},
		Size:        domain.Size{Width: w, Height: h},
		Content:     content,
	}
}

func TestCreateObject_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	obj, err := env.svc.CreateObject(ctx, 1, createPayload(10, 20, 100, 50, "hello"), anon)
	require.NoError(t, err)
	assert.NotEmpty(t, obj.ID, "服务端应当生成对象 ID")
	assert.Equal(t, "text", obj.Type)
	assert.Equal(t, "Anonymous #1", obj.CreatedBy)

	board, err := env.svc.LoadBoard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, board.Objects, 1)
	require.Len(t, board.History, 1)
	assert.Equal(t, domain.ActionCreate, board.History[0].Action)
	assert.NotEqual(t, anon.IP, board.History[0].UserIP, "历史里绝不能出现明文地址")

	require.Len(t, env.events.events, 1)
	assert.Equal(t, "object_created", env.events.events[0].Type)
}

func TestCreateObject_TruncatesContent(t *testing.T) {
	env := newTestEnv(t)

	long := strings.Repeat("x", 10001)
	obj, err := env.svc.CreateObject(context.Background(), 1, createPayload(0, 0, 10, 10, long), anon)
	require.NoError(t, err)
	assert.Len(t, obj.Content, 10000, "超长内容应当被截断")
}

func TestCreateObject_OutOfBounds(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateObject(context.Background(), 1, createPayload(3800, 0, 100, 50, ""), anon)
	assert.ErrorIs(t, err, service.ErrOutOfBounds)

	board, _ := env.svc.LoadBoard(context.Background(), 1)
	assert.Empty(t, board.Objects, "被拒绝的操作不应留下任何痕迹")
	assert.Empty(t, board.History)
	assert.Empty(t, env.events.events)
}

func TestCreateObject_Collision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateObject(ctx, 1, createPayload(0, 0, 100, 100, ""), anon)
	require.NoError(t, err)

	_, err = env.svc.CreateObject(ctx, 1, createPayload(50, 50, 100, 100, ""), anon)
	assert.ErrorIs(t, err, service.ErrCollision)

	// 共享一条边不算碰撞
	_, err = env.svc.CreateObject(ctx, 1, createPayload(100, 0, 100, 100, ""), anon)
	assert.NoError(t, err)
}

func TestUpdateObject_MoveVsEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	obj, err := env.svc.CreateObject(ctx, 1, createPayload(0, 0, 100, 100, "v1"), anon)
	require.NoError(t, err)

	// 只改内容 → edit
	_, err = env.svc.UpdateObject(ctx, 1, dto.UpdateObjectPayload{
		ObjectID:   obj.ID,
		HasContent: true,
		Content:    "v2",
	}, anon)
	require.NoError(t, err)

	// 带坐标 → move
	_, err = env.svc.UpdateObject(ctx, 1, dto.UpdateObjectPayload{
		ObjectID:       obj.ID,
		HasCoordinates: true,
		Coordinates:    domain.Coordinates{X: 500, Y: 500},
	}, anon)
	require.NoError(t, err)

	board, _ := env.svc.LoadBoard(ctx, 1)
	require.Len(t, board.History, 3)
	// 历史最新在前
	assert.Equal(t, domain.ActionMove, board.History[0].Action)
	assert.Equal(t, domain.ActionEdit, board.History[1].Action)
	assert.Equal(t, domain.ActionCreate, board.History[2].Action)
}

func TestUpdateObject_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdateObject(context.Background(), 1, dto.UpdateObjectPayload{ObjectID: "ghost"}, anon)
	assert.ErrorIs(t, err, service.ErrObjectNotFound)
}

func TestUpdateObject_MoveOntoNeighborRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.svc.CreateObject(ctx, 1, createPayload(0, 0, 100, 100, ""), anon)
	require.NoError(t, err)
	_, err = env.svc.CreateObject(ctx, 1, createPayload(200, 0, 100, 100, ""), anon)
	require.NoError(t, err)

	// 把 a 挪到 b 身上
	_, err = env.svc.UpdateObject(ctx, 1, dto.UpdateObjectPayload{
		ObjectID:       a.ID,
		HasCoordinates: true,
		Coordinates:    domain.Coordinates{X: 250, Y: 50},
	}, anon)
	assert.ErrorIs(t, err, service.ErrCollision)

	// a 留在原地
	board, _ := env.svc.LoadBoard(ctx, 1)
	found, ok := board.FindObject(a.ID)
	require.True(t, ok)
	assert.Equal(t, 0.0, found.Coordinates.X)
}

func TestUpdateObject_MoveWithinSelfAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.svc.CreateObject(ctx, 1, createPayload(0, 0, 100, 100, ""), anon)
	require.NoError(t, err)

	// 新位置与自己的旧位置重叠是合法的
	_, err = env.svc.UpdateObject(ctx, 1, dto.UpdateObjectPayload{
		ObjectID:       a.ID,
		HasCoordinates: true,
		Coordinates:    domain.Coordinates{X: 50, Y: 50},
	}, anon)
	assert.NoError(t, err)
}

func TestDeleteObject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	obj, err := env.svc.CreateObject(ctx, 1, createPayload(0, 0, 10, 10, ""), anon)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.DeleteObject(ctx, 1, "", anon), service.ErrMissingObjectID)
	assert.ErrorIs(t, env.svc.DeleteObject(ctx, 1, "ghost", anon), service.ErrObjectNotFound)

	require.NoError(t, env.svc.DeleteObject(ctx, 1, obj.ID, anon))
	board, _ := env.svc.LoadBoard(ctx, 1)
	assert.Empty(t, board.Objects)
	assert.Equal(t, domain.ActionDelete, board.History[0].Action)
	assert.Nil(t, board.History[0].Details, "删除记录不带详情")
}

func TestCopyContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 缺 id 静默忽略
	require.NoError(t, env.svc.CopyContent(ctx, 1, "", anon))
	board, _ := env.svc.LoadBoard(ctx, 1)
	assert.Empty(t, board.History)

	require.NoError(t, env.svc.CopyContent(ctx, 1, "any-id", anon))
	board, _ = env.svc.LoadBoard(ctx, 1)
	require.Len(t, board.History, 1)
	assert.Equal(t, domain.ActionCopy, board.History[0].Action)
	require.Len(t, env.events.events, 1)
	assert.Equal(t, "object_copied", env.events.events[0].Type)
}

func TestBan_DefaultDurationAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// duration 为 0 时换成默认时长
	require.NoError(t, env.svc.Ban(ctx, 1, "203.0.113.4", 0))
	require.Len(t, env.bans.calls, 1)
	assert.Equal(t, 24*time.Hour, env.bans.calls[0].duration)

	banned, err := env.svc.IsBanned(ctx, 1, "203.0.113.4")
	require.NoError(t, err)
	assert.True(t, banned)

	// 名单里存的是哈希，不是明文
	assert.NotContains(t, env.bans.banned, "203.0.113.4")

	banned, err = env.svc.IsBanned(ctx, 1, "198.51.100.9")
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestHashIP_Deterministic(t *testing.T) {
	env := newTestEnv(t)

	h1 := env.svc.HashIP("203.0.113.4")
	h2 := env.svc.HashIP("203.0.113.4")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "sha256 十六进制摘要长度固定")
	assert.NotEqual(t, h1, env.svc.HashIP("203.0.113.5"))
}

func TestLoadBoard_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.LoadBoard(context.Background(), 200)
	assert.ErrorIs(t, err, service.ErrInvalidBoardID)

	_, err = env.svc.LoadBoard(context.Background(), -1)
	assert.ErrorIs(t, err, service.ErrInvalidBoardID)
}

func TestClientMessage(t *testing.T) {
	assert.Equal(t, "Object overlaps with existing content", service.ClientMessage(service.ErrCollision))
	assert.Equal(t, "Must join board first", service.ClientMessage(service.ErrMustJoin))
	assert.Equal(t, "Invalid message format", service.ClientMessage(context.DeadlineExceeded), "未识别的错误走兜底文案")
}
