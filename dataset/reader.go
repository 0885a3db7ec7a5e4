// Package dataset 读取 tagspace 测试集并按 batch 产出样本。
//
// 每行格式：<pos_tag>,<空格分隔的 token id>，例如 `3,12 7 88 5`。
// 文本补零或截断到 text_len，负标签从 [0, vocab_tag_size) 中均匀抽取且不等于正标签。
package dataset

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/pkg/dsl"
)

// maxNegDraws 是为单个负标签重复抽样的上限。
const maxNegDraws = 100

// DefaultSeed 是负采样随机数种子的默认值。
const DefaultSeed = 12345

// Options 描述一次读取所需的全部参数。
type Options struct {
	Dir          string
	TextLen      int
	NegSize      int
	VocabTagSize int
	Seed         uint64

	// Filter 为 nil 时不过滤
	Filter *dsl.SampleFilter
}

// ListFiles 列出目录下的普通文件（不递归），按文件名排序。
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeNotFound, "test data dir %s not found", dir)
	}
	if err != nil {
		return nil, core.Wrap(err, core.ModuleDataset, core.ErrorCodeInternalError, "read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeNotFound, "no data files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// ParseLine 解析一行样本，返回正标签、补齐到 textLen 的文本以及原始 token 数。
func ParseLine(line string, textLen int) (pos int64, text []int64, length int, err error) {
	head, rest, ok := strings.Cut(line, ",")
	if !ok {
		return 0, nil, 0, errors.New("missing ',' between tag and text")
	}
	pos, err = strconv.ParseInt(strings.TrimSpace(head), 10, 64)
	if err != nil {
		return 0, nil, 0, errors.New("invalid tag " + strconv.Quote(head))
	}
	if pos < 0 {
		return 0, nil, 0, errors.New("negative tag " + head)
	}

	fields := strings.Fields(rest)
	text = make([]int64, textLen)
	for i, f := range fields {
		id, perr := strconv.ParseInt(f, 10, 64)
		if perr != nil || id < 0 {
			return 0, nil, 0, errors.New("invalid token " + strconv.Quote(f))
		}
		if i < textLen {
			text[i] = id
		}
	}
	return pos, text, len(fields), nil
}

// Reader 对测试集做一次完整遍历。同一个 Reader 多次调用 Each 得到相同的样本序列。
type Reader struct {
	opts Options
}

func NewReader(opts Options) (*Reader, error) {
	switch {
	case opts.TextLen <= 0:
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "text_len must be positive")
	case opts.NegSize <= 0:
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "neg_size must be positive")
	case opts.VocabTagSize <= 0:
		return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig, "vocab_tag_size must be positive")
	}
	return &Reader{opts: opts}, nil
}

// Each 按文件名顺序、文件内行顺序把样本交给 fn。fn 返回错误时立即停止。
func (r *Reader) Each(ctx context.Context, fn func(core.Sample) error) error {
	files, err := ListFiles(r.opts.Dir)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(r.opts.Seed, r.opts.Seed))
	for _, path := range files {
		if err := r.readFile(ctx, path, rng, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readFile(ctx context.Context, path string, rng *rand.Rand, fn func(core.Sample) error) error {
	f, err := os.Open(path)
	if err != nil {
		return core.Wrap(err, core.ModuleDataset, core.ErrorCodeInternalError, "open %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		pos, text, length, err := ParseLine(line, r.opts.TextLen)
		if err != nil {
			return core.Wrap(err, core.ModuleDataset, core.ErrorCodeInvalidInput, "%s:%d", path, lineNo)
		}
		negs, err := sampleNegatives(rng, pos, r.opts.NegSize, r.opts.VocabTagSize)
		if err != nil {
			return core.Wrap(err, core.ModuleDataset, core.ErrorCodeInvalidInput, "%s:%d", path, lineNo)
		}
		s := core.Sample{Text: text, PosTag: pos, NegTags: negs, Length: length}

		keep, err := r.opts.Filter.Match(s)
		if err != nil {
			return core.Wrap(err, core.ModuleDataset, core.ErrorCodeInvalidInput, "%s:%d", path, lineNo)
		}
		if !keep {
			continue
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return core.Wrap(err, core.ModuleDataset, core.ErrorCodeInternalError, "scan %s", path)
	}
	return nil
}

// sampleNegatives 抽取 n 个不等于 pos 的标签；负标签之间允许重复。
func sampleNegatives(rng *rand.Rand, pos int64, n, vocab int) ([]int64, error) {
	negs := make([]int64, n)
	for i := range negs {
		drawn := false
		for try := 0; try < maxNegDraws; try++ {
			c := int64(rng.IntN(vocab))
			if c != pos {
				negs[i] = c
				drawn = true
				break
			}
		}
		if !drawn {
			return nil, errors.New("cannot draw a negative tag different from the positive: only one class")
		}
	}
	return negs, nil
}
