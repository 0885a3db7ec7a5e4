// Package checkpoint 负责按 epoch 恢复模型参数。
//
// 每个 epoch 一个 safetensors 文件，来源可以是本地目录（DirSource）或共享存储（StoreSource）。
// Loader.Load 不修改任何已有状态，只返回一份新的参数快照。
package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/model"
)

// Loader 把 Source 中的字节解码并按超参数校验为 model.Params。
type Loader struct {
	hyper  model.Hyper
	source Source
}

func NewLoader(h model.Hyper, source Source) *Loader {
	return &Loader{hyper: h, source: source}
}

// Load 读取 epoch 的 checkpoint，返回新的参数快照。
func (l *Loader) Load(ctx context.Context, epoch int) (*model.Params, error) {
	data, err := l.source.Open(ctx, epoch)
	if err != nil {
		return nil, err
	}
	tensors, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	params, err := model.ParamsFromTensors(l.hyper, tensors)
	if err != nil {
		code := core.ErrorCodeInvalidInput
		if de := core.GetDomainError(err); de != nil {
			code = de.Code
		}
		return nil, core.Wrap(err, core.ModuleCheckpoint, code, "checkpoint %s", l.source.Location(epoch))
	}
	return params, nil
}

// Close 释放底层来源。
func (l *Loader) Close() error { return l.source.Close() }

// Marshal 把参数快照编码为 safetensors 字节。
func Marshal(p *model.Params, dtype DType, epoch int) ([]byte, error) {
	return Encode(p.Tensors(), dtype, map[string]string{
		"format": "tagspace",
		"epoch":  strconv.Itoa(epoch),
	})
}

// Save 把参数写到 <root>/<epoch>/tagspace.safetensors。
func Save(root string, epoch int, p *model.Params, dtype DType) error {
	data, err := Marshal(p, dtype, epoch)
	if err != nil {
		return err
	}
	dir := Path(root, epoch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInternalError, "create %s", dir)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return core.Wrap(err, core.ModuleCheckpoint, core.ErrorCodeInternalError, "write checkpoint %s", dir)
	}
	return nil
}

// SaveToStore 把参数写到 store 的 <root>/<epoch>。
func SaveToStore(ctx context.Context, s core.Store, root string, epoch int, p *model.Params, dtype DType) error {
	data, err := Marshal(p, dtype, epoch)
	if err != nil {
		return err
	}
	return s.Set(ctx, Key(root, epoch), data)
}
