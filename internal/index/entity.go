package index

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// EntityIndex extracts code symbols (function/type names) referenced by an
// entry's evidence and links them into the typed knowledge graph as
// model.NodeSymbol nodes. Grounded on the deleted internal/retrieval's
// ExtractKeywords (a regex-based fallback kept here as wordRegexp) and
// extended with go-tree-sitter for accurate Go symbol extraction when the
// evidence content looks like a Go source excerpt.
type EntityIndex struct {
	engine *storage.Engine
	graph  *sitter.Parser
}

// NewEntityIndex builds an EntityIndex backed by engine.
func NewEntityIndex(engine *storage.Engine) *EntityIndex {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	return &EntityIndex{engine: engine, graph: parser}
}

var wordRegexp = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

// ExtractSymbols returns the set of distinct identifiers mentioned in
// content. When content parses as valid Go, only function and type
// declaration names are returned; otherwise every word-like token at least
// three characters long is treated as a candidate symbol.
func (e *EntityIndex) ExtractSymbols(ctx context.Context, content string) []string {
	if syms := e.extractGoSymbols(ctx, content); len(syms) > 0 {
		return syms
	}
	return extractKeywords(content)
}

func (e *EntityIndex) extractGoSymbols(ctx context.Context, content string) []string {
	tree, err := e.graph.ParseCtx(ctx, nil, []byte(content))
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil
	}

	seen := make(map[string]bool)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "method_declaration", "type_spec":
			if name := n.ChildByFieldName("name"); name != nil {
				seen[name.Content([]byte(content))] = true
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	return out
}

func extractKeywords(content string) []string {
	matches := wordRegexp.FindAllString(content, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		lower := strings.ToLower(m)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, m)
	}
	return out
}

// Link ensures a symbol node exists and connects entryID to it via
// model.EdgeContains, so the query pipeline's relation-graph stage can
// recover entries by the symbols they reference.
func (e *EntityIndex) Link(ctx context.Context, entryNodeID, symbol string) error {
	symbolNodeID := "symbol:" + symbol

	err := e.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO graph_nodes (id, type, label) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			symbolNodeID, string(model.NodeSymbol), symbol,
		); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO graph_edges (id, from_node, to_node, type, weight) VALUES (?, ?, ?, ?, 1.0)
			 ON CONFLICT(id) DO NOTHING`,
			entryNodeID+"->"+symbolNodeID, entryNodeID, symbolNodeID, string(model.EdgeContains),
		)
		return err
	})
	if err != nil {
		logging.IndexError("failed to link symbol %s: %v", symbol, err)
		return errs.Wrap(errs.CodeDatabaseError, "failed to link symbol", err)
	}
	return nil
}
