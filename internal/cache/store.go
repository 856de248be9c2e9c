package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<CacheDir>/<code>.jpg    # 实际正文
//
// 每个条目仅由正文文件组成，没有 metadata sidecar，文件的 ModTime/Size 由文件系统提供。
type Store interface {
	// Get 返回条目的完整正文。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, key Key) (*ReadResult, error)

	// Put 写入或覆盖条目。实现需通过临时文件 + rename 保证写入原子性，
	// 并在失败时清理临时文件；I/O 失败以 *IOError 返回。
	Put(ctx context.Context, key Key, body io.Reader) (*Entry, error)

	// Delete 删除正文文件；条目不存在时返回 ErrNotFound。
	Delete(ctx context.Context, key Key) error
}

// Entry 描述一个缓存条目的文件信息。
type Entry struct {
	Key       Key       `json:"key"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文字节。状态码图片体积很小，直接整体读入内存。
type ReadResult struct {
	Entry Entry
	Blob  []byte
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")

// IOError 表示底层存储失败（磁盘已满、权限不足等），与 ErrNotFound 区分开。
type IOError struct {
	Op  string
	Key Key
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op string, key Key, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Key: key, Err: err}
}
