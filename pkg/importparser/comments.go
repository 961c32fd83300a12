package importparser

import (
	"regexp"

	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
)

var (
	commentImportRe = regexp.MustCompile(`^(@mpx-import\s+)`)
	quotedURLRe     = regexp.MustCompile(`(["'].+["'])`)
)

// RewriteCommentImports replaces every /* @mpx-import "url" */ comment with an
// equivalent @import rule at the same place. Comments without a quoted URL
// are left alone. It returns the number of comments rewritten.
func RewriteCommentImports(root *stylesheet.Root) int {
	rewritten := 0
	stylesheet.WalkComments(root, func(c *stylesheet.Comment) {
		marker := commentImportRe.FindString(c.Text)
		if marker == "" {
			return
		}
		url := quotedURLRe.FindString(c.Text[len(marker):])
		if url == "" {
			return
		}

		at := stylesheet.NewAtRule("import", url)
		at.RawBefore = c.RawBefore
		at.SetPosition(c.Position())
		c.InsertBefore(at)
		c.Remove()
		rewritten++
	})
	return rewritten
}
