package neo4j

import (
	"context"
	"fmt"
	"slices"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"vpc-visualizer/internal/formatter"
	"vpc-visualizer/internal/graph"
)

// Client handles the connection and communication with a Neo4j database.
type Client struct {
	Driver neo4j.DriverWithContext
}

// NewClient creates a new Neo4j client and establishes a connection.
func NewClient(uri, user, pass string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create neo4j driver: %w", err)
	}

	return &Client{Driver: driver}, nil
}

// Close gracefully shuts down the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.Driver.Close(ctx)
}

// VerifyConnectivity checks if a connection can be established with the database.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.Driver.VerifyConnectivity(ctx)
}

// EnsureSchema creates the uniqueness constraint on endpoint ids.
func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf("CREATE CONSTRAINT endpoint_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", formatter.EndpointLabel)
	if _, err := session.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to create endpoint constraint: %w", err)
	}
	return nil
}

// UpdateGraph synchronizes the Neo4j database with the current graph state.
// Endpoints missing from g are removed together with their relationships,
// the remaining ALLOWS relationships are replaced by those of g, and every
// node of g is upserted. All of it runs in one write transaction.
func (c *Client) UpdateGraph(ctx context.Context, g *graph.Graph) error {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Get current state from Neo4j
		existingIDs, err := c.fetchExistingEndpointIDs(ctx, tx)
		if err != nil {
			return nil, err
		}

		// Remove obsolete endpoints
		if err := c.deleteObsoleteEndpoints(ctx, tx, obsoleteIDs(existingIDs, g)); err != nil {
			return nil, err
		}

		// Rules carry no identity of their own, so the kept endpoints lose
		// their relationships and get the current set back below.
		if err := c.deleteRelationships(ctx, tx); err != nil {
			return nil, err
		}

		// Upsert current graph state
		return c.upsertGraph(ctx, tx, g)
	})

	if err != nil {
		return fmt.Errorf("failed to update graph: %w", err)
	}

	return nil
}

// Counts returns the number of endpoints and ALLOWS relationships stored.
func (c *Client) Counts(ctx context.Context) (nodes, edges int, err error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := fmt.Sprintf(
		"MATCH (n:%[1]s) OPTIONAL MATCH (n)-[r:%[2]s]->(:%[1]s) RETURN count(DISTINCT n) AS nodes, count(r) AS edges",
		formatter.EndpointLabel, formatter.AllowsRelation,
	)
	record, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) (*neo4j.Record, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Single(ctx)
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count graph: %w", err)
	}

	n, _, err := neo4j.GetRecordValue[int64](record, "nodes")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read node count: %w", err)
	}
	e, _, err := neo4j.GetRecordValue[int64](record, "edges")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read edge count: %w", err)
	}
	return int(n), int(e), nil
}

// fetchExistingEndpointIDs retrieves all endpoint IDs currently in Neo4j.
func (c *Client) fetchExistingEndpointIDs(ctx context.Context, tx neo4j.ManagedTransaction) (map[string]bool, error) {
	query := fmt.Sprintf("MATCH (n:%s) RETURN n.id as id", formatter.EndpointLabel)
	result, err := tx.Run(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing endpoints: %w", err)
	}

	existingIDs := make(map[string]bool)
	for result.Next(ctx) {
		record := result.Record()
		if id, ok := record.Get("id"); ok {
			if idStr, ok := id.(string); ok {
				existingIDs[idStr] = true
			}
		}
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate existing endpoints: %w", err)
	}

	return existingIDs, nil
}

// obsoleteIDs returns the stored ids that are not nodes of g, sorted.
func obsoleteIDs(existingIDs map[string]bool, g *graph.Graph) []string {
	var ids []string
	for id := range existingIDs {
		if _, ok := g.Nodes[id]; !ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// deleteObsoleteEndpoints removes the given endpoints and their relationships.
func (c *Client) deleteObsoleteEndpoints(ctx context.Context, tx neo4j.ManagedTransaction, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("UNWIND $obsoleteIds AS obsoleteId MATCH (n:%s {id: obsoleteId}) DETACH DELETE n", formatter.EndpointLabel)
	params := map[string]any{"obsoleteIds": ids}

	if _, err := tx.Run(ctx, query, params); err != nil {
		return fmt.Errorf("failed to delete obsolete endpoints: %w", err)
	}
	return nil
}

func (c *Client) deleteRelationships(ctx context.Context, tx neo4j.ManagedTransaction) error {
	query := fmt.Sprintf("MATCH (:%[1]s)-[r:%[2]s]->(:%[1]s) DELETE r", formatter.EndpointLabel, formatter.AllowsRelation)
	if _, err := tx.Run(ctx, query, nil); err != nil {
		return fmt.Errorf("failed to delete existing relationships: %w", err)
	}
	return nil
}

// upsertGraph inserts or updates the current graph state in Neo4j.
func (c *Client) upsertGraph(ctx context.Context, tx neo4j.ManagedTransaction, g *graph.Graph) (any, error) {
	if len(g.Nodes) == 0 {
		return nil, nil
	}
	query, params := formatter.ToCypherTransaction(g)
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert graph: %w", err)
	}
	return result.Consume(ctx)
}
