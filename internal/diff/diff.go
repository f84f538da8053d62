// Package diff renders a unified diff between a file's checkpoint copy
// and its current content.
package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// binarySniffLen is how many leading bytes are inspected for a NUL byte.
const binarySniffLen = 8192

// Result describes the comparison between the checkpoint copy and the
// current file. Missing files and binary content are display states, not
// errors.
type Result struct {
	Unified string `json:"unified"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`

	Binary      bool `json:"binary"`
	Identical   bool `json:"identical"`
	OldMissing  bool `json:"old_missing"`
	NewMissing  bool `json:"new_missing"`
	BothMissing bool `json:"both_missing"`
}

// File diffs checkpointPath against currentPath. Either path may be
// empty or point at a missing file. rel is used only for the diff
// headers ("checkpoint/<rel>" vs "current/<rel>").
func File(rel, currentPath, checkpointPath string) (*Result, error) {
	oldLines, oldBinary, oldMissing, err := readLines(checkpointPath)
	if err != nil {
		return nil, err
	}
	newLines, newBinary, newMissing, err := readLines(currentPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		OldMissing:  oldMissing,
		NewMissing:  newMissing,
		BothMissing: oldMissing && newMissing,
	}
	if res.BothMissing {
		return res, nil
	}
	if oldBinary || newBinary {
		res.Binary = true
		return res, nil
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        oldLines,
		B:        newLines,
		FromFile: "checkpoint/" + rel,
		ToFile:   "current/" + rel,
		Context:  4,
	})
	if err != nil {
		return nil, fmt.Errorf("diff: %s: %w", rel, err)
	}
	if unified == "" {
		res.Identical = true
		return res, nil
	}

	res.Unified = unified
	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			res.Added++
		case strings.HasPrefix(line, "-"):
			res.Removed++
		}
	}
	return res, nil
}

// readLines splits a file into lines keeping terminators, flagging
// binary content (NUL byte within the sniff window) and missing files.
func readLines(path string) (lines []string, binary, missing bool, err error) {
	if path == "" {
		return nil, false, true, nil
	}
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, false, true, nil
		}
		return nil, false, false, fmt.Errorf("diff: read %s: %w", path, readErr)
	}

	sniff := raw
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	for _, b := range sniff {
		if b == 0 {
			return nil, true, false, nil
		}
	}

	return difflib.SplitLines(string(raw)), false, false, nil
}
