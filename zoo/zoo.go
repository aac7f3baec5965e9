// Package zoo loads the declarative pipeline catalog: a YAML document
// mapping pipeline names to the parameters needed to construct a
// PreProcessor, Network, and PostProcessor triple (§6).
package zoo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-dnn-pipeline/errs"
)

// Filter narrows which zoo entries are offered, matching the backend
// actually available on the running device.
type Filter string

const (
	FilterAll    Filter = "All"
	FilterOpenCV Filter = "OpenCV"
	FilterTPU    Filter = "TPU"
	FilterNPU    Filter = "NPU"
	FilterVPU    Filter = "VPU"
)

// rawEntry mirrors the YAML shape of one zoo entry. Every field is optional
// in the document; defaulting and validation happen in Entry.
type rawEntry struct {
	Preproc  string `yaml:"preproc"`
	NetType  string `yaml:"nettype"`
	PostProc string `yaml:"postproc"`

	Model  string `yaml:"model"`
	Config string `yaml:"config"`

	InTensors  string `yaml:"intensors"`
	OutTensors string `yaml:"outtensors"`

	Mean   string `yaml:"mean"`
	Scale  string `yaml:"scale"`
	RGB    *bool  `yaml:"rgb"`
	Resize string `yaml:"resize"`

	Classes string `yaml:"classes"`

	Anchors     string  `yaml:"anchors"`
	DetectType  string  `yaml:"detecttype"`
	NMS         float32 `yaml:"nms"`
	NMSBackend  string  `yaml:"nmsbackend"`
	Thresh      float32 `yaml:"thresh"`
	Top         int     `yaml:"top"`
	ClassOffset int     `yaml:"classoffset"`
	Softmax     bool    `yaml:"softmax"`
	ScoreScale  float32 `yaml:"scorescale"`

	Dequant        bool   `yaml:"dequant"`
	FlattenOutputs bool   `yaml:"flattenoutputs"`
	Target         string `yaml:"target"`
	Backend        string `yaml:"backend"`
	TPUNum         int    `yaml:"tpunum"`

	ExtraModel string `yaml:"extramodel"`
	Comment    string `yaml:"comment"`

	Accelerator string `yaml:"accelerator"`
}

// Entry is one parsed, path-resolved zoo pipeline definition.
type Entry struct {
	Name string

	Preproc  string
	NetType  string
	PostProc string

	ModelPath  string
	ConfigPath string

	InTensors  string
	OutTensors string

	Mean   string
	Scale  string
	RGB    bool
	Resize string

	ClassesPath string

	Anchors     string
	DetectType  string
	NMS         float32
	NMSBackend  string
	Thresh      float32
	Top         int
	ClassOffset int
	Softmax     bool
	ScoreScale  float32

	Dequant        bool
	FlattenOutputs bool
	Target         string
	Backend        string
	TPUNum         int

	Accelerator string
}

// Index is a loaded zoo file: every entry, keyed by pipeline name, plus the
// resolved directories relative paths were anchored against.
type Index struct {
	ZooRoot  string
	DataRoot string
	Entries  map[string]Entry
}

var validPreproc = map[string]bool{"Blob": true, "Custom": true}
var validNetType = map[string]bool{"OpenCV": true, "NPU": true, "TPU": true, "Custom": true}
var validPostProc = map[string]bool{"Classify": true, "Detect": true, "Segment": true, "Custom": true}

// Load reads and parses the zoo file at path. dataRoot anchors relative
// model/config/classes paths; zooRoot (the zoo file's own directory) is
// recorded for informational purposes and as the fallback dataRoot when
// dataRoot is empty.
func Load(path, dataRoot string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "zoo: open %s", path)
	}
	defer f.Close()

	var raw map[string]rawEntry
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		return nil, errs.NewZooParseError(path, err.Error())
	}

	zooRoot := filepath.Dir(path)
	if dataRoot == "" {
		dataRoot = zooRoot
	}

	entries := make(map[string]Entry, len(raw))
	for name, r := range raw {
		entry, err := resolveEntry(name, r, dataRoot)
		if err != nil {
			return nil, err
		}
		entries[name] = entry
	}

	return &Index{ZooRoot: zooRoot, DataRoot: dataRoot, Entries: entries}, nil
}

func resolveEntry(name string, r rawEntry, dataRoot string) (Entry, error) {
	preproc := defaultString(r.Preproc, "Blob")
	if !validPreproc[preproc] {
		return Entry{}, errs.NewZooParseError(name, "unrecognized preproc value "+preproc)
	}
	netType := defaultString(r.NetType, "OpenCV")
	if !validNetType[netType] {
		return Entry{}, errs.NewZooParseError(name, "unrecognized nettype value "+netType)
	}
	postProc := defaultString(r.PostProc, "Classify")
	if !validPostProc[postProc] {
		return Entry{}, errs.NewZooParseError(name, "unrecognized postproc value "+postProc)
	}

	rgb := true
	if r.RGB != nil {
		rgb = *r.RGB
	}

	entry := Entry{
		Name:           name,
		Preproc:        preproc,
		NetType:        netType,
		PostProc:       postProc,
		ModelPath:      resolvePath(dataRoot, r.Model),
		ConfigPath:     resolvePath(dataRoot, r.Config),
		InTensors:      r.InTensors,
		OutTensors:     r.OutTensors,
		Mean:           r.Mean,
		Scale:          r.Scale,
		RGB:            rgb,
		Resize:         r.Resize,
		ClassesPath:    resolvePath(dataRoot, r.Classes),
		Anchors:        r.Anchors,
		DetectType:     r.DetectType,
		NMS:            r.NMS,
		NMSBackend:     r.NMSBackend,
		Thresh:         r.Thresh,
		Top:            r.Top,
		ClassOffset:    r.ClassOffset,
		Softmax:        r.Softmax,
		ScoreScale:     r.ScoreScale,
		Dequant:        r.Dequant,
		FlattenOutputs: r.FlattenOutputs,
		Target:         r.Target,
		Backend:        r.Backend,
		TPUNum:         r.TPUNum,
		Accelerator:    r.Accelerator,
	}
	return entry, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// resolvePath resolves p against root when p is relative and non-empty;
// empty and already-absolute paths pass through unchanged.
func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Filtered returns the subset of idx's entries whose nettype matches f.
// FilterAll returns every entry unmodified.
func (idx *Index) Filtered(f Filter) map[string]Entry {
	if f == "" || f == FilterAll {
		return idx.Entries
	}
	out := make(map[string]Entry)
	for name, e := range idx.Entries {
		if strings.EqualFold(e.NetType, string(f)) {
			out[name] = e
		}
	}
	return out
}
