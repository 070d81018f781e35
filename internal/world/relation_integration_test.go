//go:build integration

package world

import (
	"context"
	"testing"

	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	"go.uber.org/zap"
)

func TestRelationGraph(t *testing.T) {
	ctx := context.Background()
	container, err := tcneo4j.Run(ctx, "neo4j:5-community",
		tcneo4j.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("start neo4j: %v", err)
	}
	defer container.Terminate(ctx)
	uri, err := container.BoltUrl(ctx)
	if err != nil {
		t.Fatalf("neo4j bolt url: %v", err)
	}

	g, err := NewRelationGraph(uri, "", "", zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer g.Close(ctx)

	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}, {"a", "c"}} {
		if err := g.RecordChat(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("record %v: %v", pair, err)
		}
	}
	if err := g.RecordChat(ctx, "a", "a"); err == nil {
		t.Fatal("self chat accepted")
	}

	rels, err := g.Relations(ctx, "a")
	if err != nil {
		t.Fatalf("relations: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("relations = %+v", rels)
	}
	if rels[0].WorkerID != "b" || rels[0].Chats != 2 {
		t.Errorf("top relation = %+v, want b with 2 chats", rels[0])
	}
	if rels[1].WorkerID != "c" || rels[1].Chats != 1 {
		t.Errorf("second relation = %+v", rels[1])
	}

	none, err := g.Relations(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("relations for stranger = %+v, %v", none, err)
	}
}
