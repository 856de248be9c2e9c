package retrieval

// Status 表示一次协调操作的结果类别，由路由层映射为 HTTP 响应。
type Status int

const (
	// FromCache 命中本地缓存。
	FromCache Status = iota + 1
	// FromOrigin 回源成功（无论回填是否成功）。
	FromOrigin
	// UpstreamMiss 回源失败或返回空正文。
	UpstreamMiss
	// Created 显式写入成功。
	Created
	// WriteFailure 显式写入失败。
	WriteFailure
	// Deleted 删除成功。
	Deleted
	// NotFound 删除时条目不存在。
	NotFound
	// RemoveFailure 删除遇到非“不存在”类的 I/O 错误。
	RemoveFailure
)

func (s Status) String() string {
	switch s {
	case FromCache:
		return "from_cache"
	case FromOrigin:
		return "from_origin"
	case UpstreamMiss:
		return "upstream_miss"
	case Created:
		return "created"
	case WriteFailure:
		return "write_failure"
	case Deleted:
		return "deleted"
	case NotFound:
		return "not_found"
	case RemoveFailure:
		return "remove_failure"
	default:
		return "unknown"
	}
}

// HasBody 表示该状态是否携带图片正文。
func (s Status) HasBody() bool {
	return s == FromCache || s == FromOrigin
}
