package validator

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// TreeSitterCounter counts function definitions with tree-sitter's C
// grammar. It shares nothing with the extractor, which makes it a useful
// second opinion.
type TreeSitterCounter struct{}

// CountFunctions returns the number of function_definition nodes in src,
// including those nested in preprocessor conditionals.
func (TreeSitterCounter) CountFunctions(ctx context.Context, src []byte) (int, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return 0, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	return countDefinitions(tree.RootNode()), nil
}

func countDefinitions(n *sitter.Node) int {
	if n.Type() == "function_definition" {
		return 1
	}
	total := 0
	for i := 0; i < int(n.NamedChildCount()); i++ {
		total += countDefinitions(n.NamedChild(i))
	}
	return total
}
