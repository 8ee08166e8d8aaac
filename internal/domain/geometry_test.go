package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"public-clipboard/internal/domain"
)

func obj(id string, x, y, w, h float64) domain.TextObject {
	return domain.TextObject{
		ID:          id,
		Type:        "text",
		Coordinates: domain.Coordinates{X: x, Y: y},
		Size:        domain.Size{Width: w, Height: h},
	}
}

func TestCanvas_Contains(t *testing.T) {
	canvas := domain.Canvas{Width: 3840, Height: 2160}

	tests := []struct {
		name   string
		coords domain.Coordinates
		size   domain.Size
		want   bool
	}{
		{"完全在画布内", domain.Coordinates{X: 10, Y: 10}, domain.Size{Width: 100, Height: 50}, true},
		{"贴住左上角", domain.Coordinates{X: 0, Y: 0}, domain.Size{Width: 100, Height: 50}, true},
		{"贴住右下边界", domain.Coordinates{X: 3740, Y: 2110}, domain.Size{Width: 100, Height: 50}, true},
		{"X 为负", domain.Coordinates{X: -1, Y: 10}, domain.Size{Width: 100, Height: 50}, false},
		{"Y 为负", domain.Coordinates{X: 10, Y: -1}, domain.Size{Width: 100, Height: 50}, false},
		{"右边越界一个像素", domain.Coordinates{X: 3741, Y: 10}, domain.Size{Width: 100, Height: 50}, false},
		{"下边越界一个像素", domain.Coordinates{X: 10, Y: 2111}, domain.Size{Width: 100, Height: 50}, false},
		{"对象比画布还大", domain.Coordinates{X: 0, Y: 0}, domain.Size{Width: 5000, Height: 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canvas.Contains(tt.coords, tt.size))
		})
	}
}

func TestOverlaps(t *testing.T) {
	a := obj("a", 0, 0, 100, 100)

	// 相交
	assert.True(t, domain.Overlaps(a, obj("b", 50, 50, 100, 100)))
	// 完全包含
	assert.True(t, domain.Overlaps(a, obj("b", 10, 10, 20, 20)))
	// 只共享一条边不算重叠
	assert.False(t, domain.Overlaps(a, obj("b", 100, 0, 100, 100)))
	assert.False(t, domain.Overlaps(a, obj("b", 0, 100, 100, 100)))
	// 完全分离
	assert.False(t, domain.Overlaps(a, obj("b", 500, 500, 10, 10)))
}

func TestOverlaps_Symmetric(t *testing.T) {
	a := obj("a", 0, 0, 100, 100)
	b := obj("b", 50, 50, 100, 100)
	assert.Equal(t, domain.Overlaps(a, b), domain.Overlaps(b, a), "重叠判断应当对称")
}

func TestHasCollision_ExcludesSelf(t *testing.T) {
	existing := []domain.TextObject{obj("a", 0, 0, 100, 100)}

	// 自己的新位置与旧位置重叠不算碰撞
	moved := obj("a", 50, 50, 100, 100)
	assert.False(t, domain.HasCollision(existing, moved))

	// 其他对象撞上去算碰撞
	intruder := obj("b", 50, 50, 100, 100)
	assert.True(t, domain.HasCollision(existing, intruder))

	// 空画板永远没有碰撞
	assert.False(t, domain.HasCollision(nil, intruder))
}
