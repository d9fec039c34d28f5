package syncer

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders a line diff between two config texts: unchanged lines
// prefixed with a space, removals with "-", additions with "+". Empty
// when the texts match.
func Diff(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()

	src, dst, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder

	for _, diff := range diffs {
		prefix := " "

		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range splitLines(diff.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// splitLines splits diff segment text into lines without the trailing
// newline each carries.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
