package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/tagspace/checkpoint"
	"github.com/rushteam/tagspace/core"
	"github.com/rushteam/tagspace/model"
)

const configTemplate = `
dygraph:
  use_gpu: false
  test_data_dir: %q
  epochs: 1
  print_interval: 1
  infer_load_path: %q
  infer_start_epoch: -1
  infer_end_epoch: 1
  batch_size_infer: 3
hyper_parameters:
  vocab_text_size: 10
  vocab_tag_size: 4
  emb_dim: 3
  hid_dim: 4
  win_size: 3
  margin: 0.1
  neg_size: 2
  text_len: 4
`

func writeConfig(t *testing.T, withCheckpoint bool) string {
	t.Helper()
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	loadPath := filepath.Join(root, "increment")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "test.txt"), []byte("0,1 2\n1,3 4 5\n3,9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if withCheckpoint {
		h := model.Hyper{VocabTextSize: 10, VocabTagSize: 4, EmbDim: 3, HidDim: 4, WinSize: 3, Margin: 0.1, NegSize: 2, TextLen: 4}
		p, err := model.InitParams(h, 3, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if err := checkpoint.Save(loadPath, 0, p, checkpoint.F16); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(configTemplate, dataDir, loadPath)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRootCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := buildRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"-m", writeConfig(t, true)})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "infer epoch: 0 done, acc: [") {
		t.Errorf("missing epoch summary:\n%s", out.String())
	}
}

func TestRootCmdMissingCheckpoint(t *testing.T) {
	var out bytes.Buffer
	cmd := buildRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config_yaml", writeConfig(t, false)})
	if err := cmd.Execute(); !core.IsNotFound(err) {
		t.Errorf("Execute() error = %v, want not found", err)
	}
}

func TestRootCmdRequiresConfig(t *testing.T) {
	cmd := buildRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Error("Execute() without -m should fail")
	}
}
