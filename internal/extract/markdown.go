package extract

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// markdownBlocks strips markup by walking the goldmark AST and collecting
// the text of each top-level block, so headings, list items and paragraphs
// come back as separate blocks for the chunker.
func markdownBlocks(path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var blocks []string
	for block := doc.FirstChild(); block != nil; block = block.NextSibling() {
		blocks = append(blocks, blockText(block, src))
	}
	return blocks, nil
}

func blockText(block ast.Node, src []byte) string {
	var text strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			text.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				text.WriteString(" ")
			}
		case *ast.AutoLink:
			text.Write(node.URL(src))
		}
		return ast.WalkContinue, nil
	})
	return text.String()
}
