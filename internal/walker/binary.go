package walker

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// sniffLen mirrors the teacher's scanner.go heuristic: read the first 512
// bytes and flag the file binary if a NUL byte appears in that prefix.
const sniffLen = 512

// looksBinary reports whether the file at path appears to be binary content,
// per spec §4.2's binary-exclusion rule.
func looksBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) != -1, nil
}

// defaultIgnoreDirs are hardcoded directory names excluded from every walk
// regardless of .gitignore contents, per spec §4.2 step 1.
var defaultIgnoreDirs = []string{
	"node_modules",
	"dist",
	"build",
	".git",
	"vendor",
	".oracle",
}

// defaultIgnorePatterns are hardcoded glob patterns seeded into the matcher
// before any .gitignore is read.
var defaultIgnorePatterns = []string{
	"*.min.js",
}

// generatedMarkers are substrings that, found in a file's first line (read
// from at most its first 256 bytes), mark it as machine-generated and
// excluded from indexing — grounded on the
// teacher's isGeneratedFile check in scanner.go.
var generatedMarkers = []string{
	"Code generated by",
	"DO NOT EDIT",
	"@generated",
}

func looksGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 256)
	n, _ := f.Read(buf)
	if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
		n = i
	}
	line := string(buf[:n])
	for _, marker := range generatedMarkers {
		if bytes.Contains([]byte(line), []byte(marker)) {
			return true, nil
		}
	}
	return false, nil
}
