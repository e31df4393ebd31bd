package assets

import (
	"bufio"
	"io"
	"strings"

	"github.com/intraweb/intraweb/internal/revision"
)

// TransformHTML strips <!-- --> comments, collapses whitespace outside
// <pre> spans, drops blank lines outside <pre> spans, and appends the
// current revision to every CSS/JS reference so nested asset URLs are
// self-versioning.
func TransformHTML(tracker *revision.Tracker, logicalPath string, r io.Reader, w io.Writer) error {
	writer := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)

	inComment := false
	preDepth := 0
	for scanner.Scan() {
		var line string
		line, inComment = stripBlockComments(scanner.Text(), "<!--", "-->", inComment)

		opens, closes := countPreTags(line)
		preserve := preDepth > 0 || opens > 0
		preDepth += opens - closes
		if preDepth < 0 {
			preDepth = 0
		}

		if !preserve {
			line = collapseWhitespace(line)
			if line == "" {
				continue
			}
		}

		line = stampAssetRefs(tracker, logicalPath, line)
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return writer.Flush()
}

// countPreTags counts <pre and </pre occurrences, case-insensitive.
func countPreTags(line string) (opens, closes int) {
	lower := strings.ToLower(line)
	return strings.Count(lower, "<pre"), strings.Count(lower, "</pre")
}

// stampAssetRefs appends "/<revision>" to each resolvable CSS/JS reference
// on the line. References the tracker does not know keep their plain URL.
func stampAssetRefs(tracker *revision.Tracker, logicalPath, line string) string {
	if tracker == nil {
		return line
	}
	for _, ref := range revision.ScanRefs(line) {
		rev, err := tracker.RevisionOf(refLogicalPath(logicalPath, ref))
		if err != nil {
			continue
		}
		line = strings.Replace(line, `"`+ref+`"`, `"`+ref+"/"+rev+`"`, 1)
	}
	return line
}

// refLogicalPath anchors a relative reference at its referrer's directory.
func refLogicalPath(referrer, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	dir := referrer[:strings.LastIndex(referrer, "/")+1]
	return dir + ref
}
