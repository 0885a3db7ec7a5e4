package checkpoint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rushteam/tagspace/core"
)

// FileName 是每个 epoch 目录下的参数文件名。
const FileName = "tagspace.safetensors"

// Path 返回 epoch 对应的 checkpoint 目录：<root>/<epoch>。
func Path(root string, epoch int) string {
	return filepath.Join(root, strconv.Itoa(epoch))
}

// Key 返回 epoch 对应的存储 key：<root>/<epoch>。
func Key(root string, epoch int) string {
	return strings.TrimRight(root, "/") + "/" + strconv.Itoa(epoch)
}

// Source 按 epoch 取出 checkpoint 的原始字节。
type Source interface {
	// Open 读取 epoch 的 checkpoint，不存在时返回 NOT_FOUND
	Open(ctx context.Context, epoch int) ([]byte, error)

	// Location 返回 epoch 对应的位置描述（用于日志和错误信息）
	Location(epoch int) string

	Close() error
}

// DirSource 从本地目录读取：<Root>/<epoch>/tagspace.safetensors。
type DirSource struct {
	Root string
}

func (s DirSource) Location(epoch int) string { return Path(s.Root, epoch) }

func (s DirSource) Open(ctx context.Context, epoch int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := Path(s.Root, epoch)
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeNotFound, "checkpoint %s not found", dir)
	}
	if err != nil {
		return nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInternalError, "read checkpoint %s", dir)
	}
	return data, nil
}

func (DirSource) Close() error { return nil }

// StoreSource 从 core.Store 读取，key 为 <Root>/<epoch>。
type StoreSource struct {
	Store core.Store
	Root  string
}

func (s StoreSource) Location(epoch int) string {
	return s.Store.Name() + "://" + Key(s.Root, epoch)
}

func (s StoreSource) Open(ctx context.Context, epoch int) ([]byte, error) {
	key := Key(s.Root, epoch)
	data, err := s.Store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return nil, core.Errorf(core.ModuleCheckpoint, core.ErrorCodeNotFound, "checkpoint %s not found", s.Location(epoch))
	}
	if err != nil {
		return nil, core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInternalError, "read checkpoint %s", s.Location(epoch))
	}
	return data, nil
}

func (s StoreSource) Close() error { return s.Store.Close() }
