package repo

import (
	"context"
	"database/sql"

	"agentmemory/internal/errs"
	"agentmemory/internal/logging"
	"agentmemory/internal/model"
	"agentmemory/internal/storage"

	"github.com/google/uuid"
)

// GraphRepo manages the typed knowledge graph (entries, code symbols, files)
// walked by the query pipeline's relation-graph candidate stage. Edge types
// are a closed enum (model.EdgeType); this repo does not support
// caller-defined edge kinds or general graph-database semantics.
type GraphRepo struct {
	engine *storage.Engine
}

// NewGraphRepo builds a GraphRepo backed by engine.
func NewGraphRepo(engine *storage.Engine) *GraphRepo {
	return &GraphRepo{engine: engine}
}

// UpsertNode inserts or replaces a graph node.
func (g *GraphRepo) UpsertNode(ctx context.Context, node model.GraphNode) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	return g.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO graph_nodes (id, type, label, properties) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET type = excluded.type, label = excluded.label, properties = excluded.properties`,
			node.ID, string(node.Type), node.Label, nullableString(node.Properties),
		)
		return err
	})
}

// Connect adds a typed, weighted edge between two nodes.
func (g *GraphRepo) Connect(ctx context.Context, fromNode, toNode string, edgeType model.EdgeType, weight float64) (*model.GraphEdge, error) {
	edge := &model.GraphEdge{
		ID:       uuid.NewString(),
		FromNode: fromNode,
		ToNode:   toNode,
		Type:     edgeType,
		Weight:   weight,
	}
	err := g.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO graph_edges (id, from_node, to_node, type, weight) VALUES (?, ?, ?, ?, ?)`,
			edge.ID, edge.FromNode, edge.ToNode, string(edge.Type), edge.Weight,
		)
		return err
	})
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to connect graph nodes", err)
	}
	logging.Index("graph edge %s -[%s]-> %s", fromNode, edgeType, toNode)
	return edge, nil
}

// Expire sets valid_to on an edge, removing it from future traversals
// without deleting its history.
func (g *GraphRepo) Expire(ctx context.Context, edgeID string) error {
	return g.engine.WithWriter(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE graph_edges SET valid_to = CURRENT_TIMESTAMP WHERE id = ? AND valid_to IS NULL`, edgeID)
		return err
	})
}

// Neighbors returns every still-valid edge of the given types leaving
// nodeID, used by the query pipeline's bounded-hop graph walk.
func (g *GraphRepo) Neighbors(ctx context.Context, nodeID string, types []model.EdgeType) ([]model.GraphEdge, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := make([]any, 0, len(types)+1)
	placeholders = append(placeholders, nodeID)
	query := `SELECT id, from_node, to_node, type, weight, valid_from, valid_to
	          FROM graph_edges WHERE from_node = ? AND valid_to IS NULL AND type IN (`
	for i, t := range types {
		if i > 0 {
			query += ","
		}
		query += "?"
		placeholders = append(placeholders, string(t))
	}
	query += ")"

	rows, err := g.engine.DB().QueryContext(ctx, query, placeholders...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to query graph neighbors", err)
	}
	defer rows.Close()

	var out []model.GraphEdge
	for rows.Next() {
		var e model.GraphEdge
		var edgeType string
		if err := rows.Scan(&e.ID, &e.FromNode, &e.ToNode, &edgeType, &e.Weight, &e.ValidFrom, &e.ValidTo); err != nil {
			return nil, errs.Wrap(errs.CodeDatabaseError, "failed to scan graph edge", err)
		}
		e.Type = model.EdgeType(edgeType)
		out = append(out, e)
	}
	return out, nil
}

// Node fetches a single graph node by ID.
func (g *GraphRepo) Node(ctx context.Context, id string) (*model.GraphNode, error) {
	row := g.engine.DB().QueryRowContext(ctx,
		`SELECT id, type, label, COALESCE(properties, '') FROM graph_nodes WHERE id = ?`, id)
	var n model.GraphNode
	var nodeType string
	if err := row.Scan(&n.ID, &nodeType, &n.Label, &n.Properties); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.CodeNotFound, "graph node not found").WithContext("id", id)
		}
		return nil, errs.Wrap(errs.CodeDatabaseError, "failed to fetch graph node", err)
	}
	n.Type = model.NodeType(nodeType)
	return &n, nil
}
