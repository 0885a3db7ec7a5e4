package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/pkg/dsl"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func collect(t *testing.T, r *Reader) []core.Sample {
	t.Helper()
	var out []core.Sample
	if err := r.Each(context.Background(), func(s core.Sample) error {
		out = append(out, s)
		return nil
	}); err != nil {
		t.Fatalf("Each() error = %v", err)
	}
	return out
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		textLen  int
		wantPos  int64
		wantText []int64
		wantLen  int
		wantErr  bool
	}{
		{name: "pad", line: "3,5 6", textLen: 4, wantPos: 3, wantText: []int64{5, 6, 0, 0}, wantLen: 2},
		{name: "truncate", line: "1,1 2 3 4 5", textLen: 3, wantPos: 1, wantText: []int64{1, 2, 3}, wantLen: 5},
		{name: "extra spaces", line: " 0 ,  9   8 ", textLen: 2, wantPos: 0, wantText: []int64{9, 8}, wantLen: 2},
		{name: "empty text", line: "2,", textLen: 2, wantPos: 2, wantText: []int64{0, 0}, wantLen: 0},
		{name: "no comma", line: "3 5 6", textLen: 4, wantErr: true},
		{name: "bad tag", line: "x,5 6", textLen: 4, wantErr: true},
		{name: "bad token", line: "3,5 y", textLen: 4, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, text, length, err := ParseLine(tt.line, tt.textLen)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if pos != tt.wantPos || length != tt.wantLen {
				t.Errorf("ParseLine() pos=%d len=%d, want pos=%d len=%d", pos, length, tt.wantPos, tt.wantLen)
			}
			if diff := cmp.Diff(tt.wantText, text); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReaderNegativesAndDeterminism(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"b.txt": "2,4 5 6\n\n0,7\n",
		"a.txt": "1,1 2 3\n",
	})
	r, err := NewReader(Options{Dir: dir, TextLen: 3, NegSize: 4, VocabTagSize: 3, Seed: DefaultSeed})
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	first := collect(t, r)
	if len(first) != 3 {
		t.Fatalf("got %d samples, want 3", len(first))
	}
	// a.txt 排在 b.txt 之前
	if diff := cmp.Diff([]int64{1, 2, 0}, []int64{first[0].PosTag, first[1].PosTag, first[2].PosTag}); diff != "" {
		t.Errorf("file order mismatch (-want +got):\n%s", diff)
	}
	for _, s := range first {
		if len(s.NegTags) != 4 {
			t.Errorf("got %d negatives, want 4", len(s.NegTags))
		}
		for _, n := range s.NegTags {
			if n == s.PosTag || n < 0 || n >= 3 {
				t.Errorf("invalid negative %d for positive %d", n, s.PosTag)
			}
		}
	}

	second := collect(t, r)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("passes differ (-first +second):\n%s", diff)
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		dir   func(t *testing.T) string
		vocab int
		check func(error) bool
	}{
		{
			name:  "missing dir",
			dir:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
			vocab: 3,
			check: core.IsNotFound,
		},
		{
			name:  "empty dir",
			dir:   func(t *testing.T) string { return t.TempDir() },
			vocab: 3,
			check: core.IsNotFound,
		},
		{
			name:  "malformed line",
			dir:   func(t *testing.T) string { return writeFiles(t, map[string]string{"a": "1,2\nbroken\n"}) },
			vocab: 3,
			check: core.IsInvalidInput,
		},
		{
			name:  "only one class",
			dir:   func(t *testing.T) string { return writeFiles(t, map[string]string{"a": "0,2\n"}) },
			vocab: 1,
			check: core.IsInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(Options{Dir: tt.dir(t), TextLen: 2, NegSize: 1, VocabTagSize: tt.vocab})
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			err = r.Each(context.Background(), func(core.Sample) error { return nil })
			if !tt.check(err) {
				t.Errorf("Each() error = %v", err)
			}
		})
	}
}

func TestReaderFilter(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a": "1,1 2 3\n2,4\n1,5 6\n"})
	f, err := dsl.NewSampleFilter("sample.length >= 2")
	if err != nil {
		t.Fatalf("NewSampleFilter() error = %v", err)
	}
	r, _ := NewReader(Options{Dir: dir, TextLen: 3, NegSize: 1, VocabTagSize: 4, Filter: f})
	got := collect(t, r)
	if len(got) != 2 {
		t.Fatalf("got %d samples after filter, want 2", len(got))
	}
}

func TestLoaderBatches(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a": "1,1\n1,2\n1,3\n1,4\n1,5\n"})
	r, _ := NewReader(Options{Dir: dir, TextLen: 2, NegSize: 2, VocabTagSize: 5})

	tests := []struct {
		name     string
		dropLast bool
		want     []int
	}{
		{"keep partial", false, []int{2, 2, 1}},
		{"drop last", true, []int{2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLoader(r, 2, DropLast(tt.dropLast), Prefetch(1))
			if err != nil {
				t.Fatalf("NewLoader() error = %v", err)
			}
			var sizes, ids []int
			err = l.Iterate(context.Background(), func(id int, b *core.Batch) error {
				if err := b.Validate(2, 2); err != nil {
					return err
				}
				ids = append(ids, id)
				sizes = append(sizes, b.Size)
				return nil
			})
			if err != nil {
				t.Fatalf("Iterate() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, sizes); diff != "" {
				t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
			}
			for i, id := range ids {
				if id != i {
					t.Errorf("batch ids = %v, want sequential from 0", ids)
					break
				}
			}
		})
	}
}

func TestLoaderErrors(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a": "1,1\n1,2\n1,3\n1,4\nbad\n"})
	r, _ := NewReader(Options{Dir: dir, TextLen: 2, NegSize: 1, VocabTagSize: 5})
	l, _ := NewLoader(r, 1)

	t.Run("reader error", func(t *testing.T) {
		err := l.Iterate(context.Background(), func(int, *core.Batch) error { return nil })
		if !core.IsInvalidInput(err) {
			t.Errorf("Iterate() error = %v, want invalid input", err)
		}
	})

	t.Run("consumer error wins", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := l.Iterate(context.Background(), func(int, *core.Batch) error {
			calls++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("Iterate() error = %v, want %v", err, stop)
		}
		if calls != 1 {
			t.Errorf("fn called %d times after error, want 1", calls)
		}
	})

	if _, err := NewLoader(r, 0); !core.IsConfigError(err) {
		t.Errorf("NewLoader(batch 0) error = %v, want config error", err)
	}
}
