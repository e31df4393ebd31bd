package assets

import (
	"bufio"
	"io"
	"strings"
)

// TransformCSS strips /* */ comments, then collapses whitespace runs. The
// scan is line-oriented: a "/*"-like sequence inside a string literal is
// treated as a comment opener. Known limitation, not a CSS parser.
func TransformCSS(r io.Reader, w io.Writer) error {
	writer := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)

	inComment := false
	for scanner.Scan() {
		var line string
		line, inComment = stripBlockComments(scanner.Text(), "/*", "*/", inComment)
		line = collapseWhitespace(line)
		if line == "" {
			continue
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return writer.Flush()
}

// stripBlockComments removes opener..closer spans from one line, carrying
// the in-comment state across lines.
func stripBlockComments(line, opener, closer string, inComment bool) (string, bool) {
	var out strings.Builder
	for {
		if inComment {
			end := strings.Index(line, closer)
			if end < 0 {
				return out.String(), true
			}
			line = line[end+len(closer):]
			inComment = false
			continue
		}
		start := strings.Index(line, opener)
		if start < 0 {
			out.WriteString(line)
			return out.String(), false
		}
		out.WriteString(line[:start])
		line = line[start+len(opener):]
		inComment = true
	}
}

// collapseWhitespace shrinks every whitespace run to a single space and
// trims the ends.
func collapseWhitespace(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
