package dataset

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/tagspace/core"
)

// DefaultPrefetch 是后台预取的 batch 数。
const DefaultPrefetch = 2

// Loader 把 Reader 的样本切成定长 batch，并在后台 goroutine 中预取。
type Loader struct {
	reader    *Reader
	batchSize int
	dropLast  bool
	prefetch  int
}

// LoaderOption 配置 Loader。
type LoaderOption func(*Loader)

// DropLast 丢弃最后一个不满 batchSize 的 batch。
func DropLast(drop bool) LoaderOption {
	return func(l *Loader) { l.dropLast = drop }
}

// Prefetch 设置预取队列长度，<=0 时使用默认值。
func Prefetch(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.prefetch = n
		}
	}
}

func NewLoader(r *Reader, batchSize int, opts ...LoaderOption) (*Loader, error) {
	if r == nil {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput, "reader is nil")
	}
	if batchSize <= 0 {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig,
			"batch_size_infer must be positive, got %d", batchSize)
	}
	l := &Loader{reader: r, batchSize: batchSize, prefetch: DefaultPrefetch}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// BatchSize 返回配置的 batch 大小。
func (l *Loader) BatchSize() int { return l.batchSize }

// errStopped 表示消费者已经退出，生产者据此停止，不作为错误返回。
var errStopped = errors.New("loader: consumer stopped")

// Iterate 完整遍历一次数据集，按顺序把 (batch_id, batch) 交给 fn，batch_id 从 0 开始。
// 读取错误和 fn 返回的错误都会终止遍历；两者同时发生时返回 fn 的错误。
func (l *Loader) Iterate(ctx context.Context, fn func(batchID int, b *core.Batch) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan *core.Batch, l.prefetch)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(batches)
		send := func(b *core.Batch) error {
			select {
			case batches <- b:
				return nil
			case <-egCtx.Done():
				return errStopped
			}
		}
		pending := make([]core.Sample, 0, l.batchSize)
		err := l.reader.Each(egCtx, func(s core.Sample) error {
			pending = append(pending, s)
			if len(pending) < l.batchSize {
				return nil
			}
			b := core.NewBatch(pending)
			pending = make([]core.Sample, 0, l.batchSize)
			return send(b)
		})
		if err != nil {
			return err
		}
		if len(pending) > 0 && !l.dropLast {
			return send(core.NewBatch(pending))
		}
		return nil
	})

	var consumeErr error
	batchID := 0
	for b := range batches {
		if consumeErr != nil {
			continue // 排空通道，让生产者退出
		}
		if err := fn(batchID, b); err != nil {
			consumeErr = err
			cancel()
			continue
		}
		batchID++
	}

	produceErr := eg.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if produceErr != nil && !errors.Is(produceErr, errStopped) {
		return produceErr
	}
	return ctx.Err()
}
