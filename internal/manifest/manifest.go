// Package manifest describes the ordered list of files an installer
// payload contains, and the File Collector that builds that list from a
// configuration and a base directory (spec.md §3.2, §4.1).
package manifest

// Entry is one file in the manifest. LogicalPath uses forward slashes and
// is the relative path under which the file appears after extraction.
type Entry struct {
	LogicalPath string `json:"path"`
	SourcePath  string `json:"-"`
	Size        uint64 `json:"size"`
	MTime       int64  `json:"mtime"`
}

// Manifest is the ordered sequence of entries making up a payload. Order
// is significant: it is the physical order files are written to (and read
// back from) the payload stream.
type Manifest []Entry

// ByLogicalPath returns a lookup from logical path to manifest index,
// useful for extraction and duplicate detection.
func (m Manifest) ByLogicalPath() map[string]int {
	idx := make(map[string]int, len(m))
	for i, e := range m {
		idx[e.LogicalPath] = i
	}
	return idx
}

// TotalSize sums the Size field across all entries.
func (m Manifest) TotalSize() uint64 {
	var total uint64
	for _, e := range m {
		total += e.Size
	}
	return total
}
