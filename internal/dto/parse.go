package dto

import (
	"encoding/json"
	"errors"
	"strconv"

	"public-clipboard/internal/domain"
)

// ErrInvalidPayload 表示消息外壳合法但负载无法按目标类型解析。
var ErrInvalidPayload = errors.New("invalid message format")

// ParseEnvelope 解析入站消息的外壳。type 缺失或 JSON 非法都会拒绝。
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, ErrInvalidPayload
	}
	if env.Type == "" {
		return Envelope{}, ErrInvalidPayload
	}
	// payload 缺失按空对象处理，各字段的缺省语义由对应的解析函数决定
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("{}")
	}
	return env, nil
}

// toNumber 把 JSON 值宽容地转换为 float64。
// 接受数字和数字字符串（历史客户端会把坐标序列化成字符串），其余一律拒绝。
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseCoordinates(v any) (domain.Coordinates, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.Coordinates{}, false
	}
	x, okX := toNumber(m["x"])
	y, okY := toNumber(m["y"])
	if !okX || !okY {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{X: x, Y: y}, true
}

func parseSize(v any) (domain.Size, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.Size{}, false
	}
	w, okW := toNumber(m["width"])
	h, okH := toNumber(m["height"])
	if !okW || !okH || w <= 0 || h <= 0 {
		return domain.Size{}, false
	}
	return domain.Size{Width: w, Height: h}, true
}

func payloadMap(payload json.RawMessage) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, ErrInvalidPayload
	}
	return m, nil
}

// ParseJoinBoard 解析 join_board。画板号在 boardId 或 id 字段，
// 容忍数字字符串，但必须是整数。
func ParseJoinBoard(payload json.RawMessage) (JoinBoardPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return JoinBoardPayload{}, err
	}
	v, present := m["boardId"]
	if !present {
		v = m["id"]
	}
	n, ok := toNumber(v)
	if !ok || n != float64(int(n)) {
		return JoinBoardPayload{}, ErrInvalidPayload
	}
	return JoinBoardPayload{BoardID: int(n)}, nil
}

// ParseCreateObject 解析 create_object。坐标与尺寸均为必填。
func ParseCreateObject(payload json.RawMessage) (CreateObjectPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return CreateObjectPayload{}, err
	}
	coords, ok := parseCoordinates(m["coordinates"])
	if !ok {
		return CreateObjectPayload{}, ErrInvalidPayload
	}
	size, ok := parseSize(m["size"])
	if !ok {
		return CreateObjectPayload{}, ErrInvalidPayload
	}
	content, _ := m["content"].(string)
	return CreateObjectPayload{Coordinates: coords, Size: size, Content: content}, nil
}

// ParseUpdateObject 解析 update_object。
// 未出现的字段保持原值；出现但非法的字段导致整条消息被拒绝。
func ParseUpdateObject(payload json.RawMessage) (UpdateObjectPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return UpdateObjectPayload{}, err
	}
	out := UpdateObjectPayload{}
	out.ObjectID, _ = m["id"].(string)

	if v, present := m["coordinates"]; present {
		coords, ok := parseCoordinates(v)
		if !ok {
			return UpdateObjectPayload{}, ErrInvalidPayload
		}
		out.HasCoordinates = true
		out.Coordinates = coords
	}
	if v, present := m["size"]; present {
		size, ok := parseSize(v)
		if !ok {
			return UpdateObjectPayload{}, ErrInvalidPayload
		}
		out.HasSize = true
		out.Size = size
	}
	if v, present := m["content"]; present {
		s, ok := v.(string)
		if !ok {
			return UpdateObjectPayload{}, ErrInvalidPayload
		}
		out.HasContent = true
		out.Content = s
	}
	return out, nil
}

// ParseDeleteObject 解析 delete_object。
func ParseDeleteObject(payload json.RawMessage) (DeleteObjectPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return DeleteObjectPayload{}, err
	}
	id, _ := m["id"].(string)
	return DeleteObjectPayload{ObjectID: id}, nil
}

// ParseCopyContent 解析 copy_content。
func ParseCopyContent(payload json.RawMessage) (CopyContentPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return CopyContentPayload{}, err
	}
	id, _ := m["id"].(string)
	return CopyContentPayload{ObjectID: id}, nil
}

// ParseBanUser 解析 ban_user。durationMs 可选，容忍数字字符串。
func ParseBanUser(payload json.RawMessage) (BanUserPayload, error) {
	m, err := payloadMap(payload)
	if err != nil {
		return BanUserPayload{}, err
	}
	out := BanUserPayload{}
	out.UserID, _ = m["userId"].(string)
	if v, present := m["durationMs"]; present {
		n, ok := toNumber(v)
		if !ok || n < 0 {
			return BanUserPayload{}, ErrInvalidPayload
		}
		out.DurationMs = int64(n)
	}
	return out, nil
}
