package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type format int

const (
	formatUnknown format = iota
	formatCSV
	formatTSV
	formatXLSX
	formatJSONL
	formatJSONLGzip
)

var extensions = []struct {
	suffix string
	format format
}{
	// Longest suffix first.
	{".jsonl.gz", formatJSONLGzip},
	{".jsonl", formatJSONL},
	{".csv", formatCSV},
	{".tsv", formatTSV},
	{".xlsx", formatXLSX},
}

var partPattern = regexp.MustCompile(`^(.+)\.part(\d+)$`)

// input is one logical source: a single file or the ordered parts of a
// split extract.
type input struct {
	Name   string
	Paths  []string
	Format format
}

func (in input) gzipped() bool {
	return in.Format == formatJSONLGzip
}

func detect(name string) (stem string, f format) {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext.suffix) {
			return name[:len(name)-len(ext.suffix)], ext.format
		}
	}
	return name, formatUnknown
}

// Supported reports whether ReadFile can read a file with this name.
func Supported(name string) bool {
	_, f := detect(name)
	return f != formatUnknown
}

type part struct {
	n    int
	path string
}

// discover lists the readable inputs of dir sorted by name. Inputs are named
// by file stem. Files named <stem>.partN.<ext> are grouped into one input
// named <stem> with parts in numeric order. Spreadsheets are never grouped.
func discover(dir string) ([]input, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %q: %w", ErrIngest, dir, err)
	}

	var result []input
	parts := make(map[string][]part)
	partFormats := make(map[string]format)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		stem, f := detect(name)
		if f == formatUnknown {
			continue
		}
		path := filepath.Join(dir, name)

		if m := partPattern.FindStringSubmatch(stem); m != nil && f != formatXLSX {
			n, _ := strconv.Atoi(m[2])
			key := m[1] + "\x00" + strconv.Itoa(int(f))
			parts[key] = append(parts[key], part{n: n, path: path})
			partFormats[key] = f
			continue
		}

		result = append(result, input{Name: stem, Paths: []string{path}, Format: f})
	}

	for key, ps := range parts {
		sort.Slice(ps, func(i, j int) bool {
			return ps[i].n < ps[j].n
		})
		in := input{Name: strings.SplitN(key, "\x00", 2)[0], Format: partFormats[key]}
		for _, p := range ps {
			in.Paths = append(in.Paths, p.path)
		}
		result = append(result, in)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Paths[0] < result[j].Paths[0]
	})
	return result, nil
}
