package zoo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZoo(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "zoo.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeZoo(t, dir, `
mobilenet:
  model: mobilenet.onnx
  classes: labels.txt
`)
	idx, err := Load(path, "")
	require.NoError(t, err)
	require.Contains(t, idx.Entries, "mobilenet")

	e := idx.Entries["mobilenet"]
	assert.Equal(t, "Blob", e.Preproc)
	assert.Equal(t, "OpenCV", e.NetType)
	assert.Equal(t, "Classify", e.PostProc)
	assert.True(t, e.RGB)
	assert.Equal(t, filepath.Join(dir, "mobilenet.onnx"), e.ModelPath)
	assert.Equal(t, filepath.Join(dir, "labels.txt"), e.ClassesPath)
}

func TestLoadExplicitRGBFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeZoo(t, dir, `
facedet:
  nettype: NPU
  postproc: Detect
  rgb: false
`)
	idx, err := Load(path, "")
	require.NoError(t, err)
	e := idx.Entries["facedet"]
	assert.False(t, e.RGB)
	assert.Equal(t, "NPU", e.NetType)
}

func TestLoadParsesNMSBackend(t *testing.T) {
	dir := t.TempDir()
	path := writeZoo(t, dir, `
yolo:
  postproc: Detect
  detecttype: YOLO
  nmsbackend: gocv
`)
	idx, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "gocv", idx.Entries["yolo"].NMSBackend)
}

func TestLoadRejectsUnrecognizedNetType(t *testing.T) {
	dir := t.TempDir()
	path := writeZoo(t, dir, `
bogus:
  nettype: Quantum
`)
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestLoadSeparateDataRoot(t *testing.T) {
	zooDir := t.TempDir()
	dataDir := t.TempDir()
	path := writeZoo(t, zooDir, `
seg:
  postproc: Segment
  model: seg.onnx
`)
	idx, err := Load(path, dataDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "seg.onnx"), idx.Entries["seg"].ModelPath)
	assert.Equal(t, zooDir, idx.ZooRoot)
}

func TestFilteredByNetType(t *testing.T) {
	idx := &Index{Entries: map[string]Entry{
		"a": {Name: "a", NetType: "OpenCV"},
		"b": {Name: "b", NetType: "NPU"},
	}}
	all := idx.Filtered(FilterAll)
	assert.Len(t, all, 2)

	npu := idx.Filtered(FilterNPU)
	require.Len(t, npu, 1)
	_, ok := npu["b"]
	assert.True(t, ok)
}
