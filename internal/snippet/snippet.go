// Package snippet extracts fenced shell code blocks from documentation files.
//
// Blocks are returned in document order because later blocks depend on state
// (working directory, git repository contents) established by earlier ones.
// The extractor never executes anything; it only collects text.
package snippet

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Block is a single fenced code block extracted from a document.
type Block struct {
	// Language is the fence info string (e.g., "bash").
	Language string

	// Text is the block body with internal line breaks preserved and no
	// trailing newline.
	Text string
}

// Extractor extracts fenced code blocks of a single language from markdown.
type Extractor struct {
	markdown goldmark.Markdown
}

// NewExtractor creates an Extractor backed by a default goldmark parser.
func NewExtractor() *Extractor {
	return &Extractor{
		markdown: goldmark.New(),
	}
}

// Extract returns all fenced code blocks whose fence language equals lang,
// in order of appearance. Fences of other languages (or with no language tag)
// are ignored. A document with no matching fences yields an empty slice,
// which is a valid, if degenerate, result.
func (e *Extractor) Extract(source []byte, lang string) ([]Block, error) {
	doc := e.markdown.Parser().Parse(text.NewReader(source))

	var blocks []Block
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		if fenceLanguage(fcb, source) != lang {
			return ast.WalkContinue, nil
		}

		blocks = append(blocks, Block{
			Language: lang,
			Text:     blockText(fcb, source),
		})
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}

// fenceLanguage returns the fence language tag, or "" for untagged fences.
func fenceLanguage(fcb *ast.FencedCodeBlock, source []byte) string {
	language := fcb.Language(source)
	if language == nil {
		return ""
	}
	return string(language)
}

// blockText joins the block's source lines, dropping the trailing newline so
// blocks can be rejoined with explicit separators downstream.
func blockText(fcb *ast.FencedCodeBlock, source []byte) string {
	var sb strings.Builder
	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
