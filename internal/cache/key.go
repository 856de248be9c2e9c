package cache

import (
	"errors"
	"fmt"
)

// Key 是 3 位十进制状态码（000-999），在边界处通过 ParseKey 校验一次，
// 内部各层默认其合法。
type Key string

// ErrInvalidKey 表示路径片段不是恰好 3 位 ASCII 数字。
var ErrInvalidKey = errors.New("cache key must be exactly 3 ascii digits")

const entryExt = ".jpg"

// ParseKey 校验原始路径片段并返回 Key。
func ParseKey(raw string) (Key, error) {
	if len(raw) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
		}
	}
	return Key(raw), nil
}

func (k Key) String() string {
	return string(k)
}

// FileName 返回条目在缓存根目录下的文件名。
func (k Key) FileName() string {
	return string(k) + entryExt
}
