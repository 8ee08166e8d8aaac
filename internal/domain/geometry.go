package domain

// Canvas 是所有画板共享的固定尺寸画布。
type Canvas struct {
	Width  float64
	Height float64
}

// Contains 判断一个矩形是否完整落在画布内（边界上合法）。
func (c Canvas) Contains(coords Coordinates, size Size) bool {
	if coords.X < 0 || coords.Y < 0 {
		return false
	}
	return coords.X+size.Width <= c.Width && coords.Y+size.Height <= c.Height
}

// Overlaps 判断两个对象的矩形是否重叠。
// 使用严格不等号：仅共享一条边不算重叠。
func Overlaps(a, b TextObject) bool {
	return a.Coordinates.X < b.Coordinates.X+b.Size.Width &&
		a.Coordinates.X+a.Size.Width > b.Coordinates.X &&
		a.Coordinates.Y < b.Coordinates.Y+b.Size.Height &&
		a.Coordinates.Y+a.Size.Height > b.Coordinates.Y
}

// HasCollision 判断候选对象是否与画板上任何其他对象重叠。
// 与候选对象 ID 相同的已有对象被排除，即移动自身不会与旧位置冲突。
func HasCollision(objects []TextObject, candidate TextObject) bool {
	for _, obj := range objects {
		if obj.ID == candidate.ID {
			continue
		}
		if Overlaps(obj, candidate) {
			return true
		}
	}
	return false
}
