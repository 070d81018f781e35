package world

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Relation summarises how often a worker has chatted with a colleague.
type Relation struct {
	WorkerID string    `json:"worker_id"`
	Chats    int64     `json:"chats"`
	LastChat time.Time `json:"last_chat"`
}

// RelationGraph records office conversations as a Neo4j graph of
// (:Worker)-[:CHATTED_WITH]-(:Worker) edges.
type RelationGraph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRelationGraph connects to Neo4j. Empty credentials disable auth.
func NewRelationGraph(uri, user, password string, logger *zap.Logger) (*RelationGraph, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &RelationGraph{driver: driver, logger: logger}, nil
}

// RecordChat counts one finished conversation between a and b. The edge is
// stored once per pair regardless of who spoke first.
func (g *RelationGraph) RecordChat(ctx context.Context, a, b string) error {
	if a == b {
		return fmt.Errorf("record chat: %s cannot chat with itself", a)
	}
	if b < a {
		a, b = b, a
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (a:Worker {id: $a})
		 MERGE (b:Worker {id: $b})
		 MERGE (a)-[r:CHATTED_WITH]->(b)
		 ON CREATE SET r.chats = 1, r.last_chat = datetime()
		 ON MATCH SET r.chats = r.chats + 1, r.last_chat = datetime()`,
		map[string]interface{}{"a": a, "b": b})
	if err != nil {
		return fmt.Errorf("record chat: %w", err)
	}
	g.logger.Debug("chat recorded", zap.String("a", a), zap.String("b", b))
	return nil
}

// Relations returns everyone workerID has chatted with, most frequent first.
func (g *RelationGraph) Relations(ctx context.Context, workerID string) ([]Relation, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (w:Worker {id: $id})-[r:CHATTED_WITH]-(o:Worker)
		 RETURN o.id AS id, r.chats AS chats, r.last_chat AS last_chat
		 ORDER BY chats DESC, id`,
		map[string]interface{}{"id": workerID})
	if err != nil {
		return nil, fmt.Errorf("get relations: %w", err)
	}

	relations := []Relation{}
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		chats, _ := rec.Get("chats")
		last, _ := rec.Get("last_chat")

		rel := Relation{}
		rel.WorkerID, _ = id.(string)
		rel.Chats, _ = chats.(int64)
		if t, ok := last.(time.Time); ok {
			rel.LastChat = t
		}
		relations = append(relations, rel)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("get relations: %w", err)
	}
	return relations, nil
}

// Close shuts down the Neo4j driver.
func (g *RelationGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
