// Package labels parses the labels file format used by the Classify and
// Detect post-processors: either one label per line (implicit id = line
// number starting at 0), or "<id><whitespace><label>" per line.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Map is a mapping from class id to display string. Missing ids render as
// the decimal id via Get.
type Map map[int]string

// Get returns the label for id, falling back to the decimal id string if id
// is not present.
func (m Map) Get(id int) string {
	if label, ok := m[id]; ok {
		return label
	}
	return strconv.Itoa(id)
}

// Load reads a labels file from path.
func Load(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "labels: open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a labels file from r. A line is treated as "<id> <label>" if
// its first whitespace-delimited token parses as a non-negative integer and
// there is trailing content; otherwise the whole trimmed line is the label
// and its id is the zero-based line number among non-empty lines.
func Parse(r io.Reader) (Map, error) {
	m := make(Map)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if id, label, ok := splitIDLabel(line); ok {
			m[id] = label
		} else {
			m[lineNum] = strings.TrimSpace(line)
		}
		lineNum++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "labels: scan")
	}
	return m, nil
}

func splitIDLabel(line string) (int, string, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, "", false
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 0 {
		return 0, "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	if rest == "" {
		return 0, "", false
	}
	return id, rest, true
}

// String formats the map for debug logging as its label count.
func (m Map) String() string {
	return fmt.Sprintf("%d labels", len(m))
}
