package repository

import "errors"

// ErrNotFound 表示目标记录不存在，调用方用 errors.Is 判断。
var ErrNotFound = errors.New("record not found")
