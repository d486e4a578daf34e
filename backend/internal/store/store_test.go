package store

import (
	"context"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"influence-atlas/backend/internal/graph"
	apperrors "influence-atlas/backend/pkg/errors"
)

// These tests require a running Neo4j instance at bolt://localhost:7687
// with the default credentials. They are skipped in short mode.

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := "bolt://localhost:7687"
	user := "neo4j"
	password := "password"

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}

	return driver, nil
}

// seedTestFigures writes a three-node fixture and returns a cleanup func
func seedTestFigures(t *testing.T, driver neo4j.DriverWithContext, prefix string) func() {
	t.Helper()
	ctx := context.Background()
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	figures := []map[string]interface{}{
		{"id": prefix + "-a", "name": "Test Figure A", "local_name": "Figuré A", "birth_year": 1920},
		{"id": prefix + "-b", "name": "Test Figure B"},
		{"id": prefix + "-c", "name": "Test Figure C"},
	}
	for _, params := range figures {
		_, err := session.Run(ctx, `
			MERGE (f:Figure {id: $id})
			SET f.name = $name,
			    f.local_name = $local_name,
			    f.birth_year = $birth_year
		`, map[string]interface{}{
			"id":         params["id"],
			"name":       params["name"],
			"local_name": params["local_name"],
			"birth_year": params["birth_year"],
		})
		if err != nil {
			t.Fatalf("Failed to seed figure: %v", err)
		}
	}

	edges := []map[string]interface{}{
		{"source": prefix + "-a", "target": prefix + "-b", "category": "musical", "trust": "self_stated"},
		{"source": prefix + "-c", "target": prefix + "-b", "category": "lyrical", "trust": "academic"},
	}
	for _, params := range edges {
		_, err := session.Run(ctx, `
			MATCH (src:Figure {id: $source})
			MATCH (tgt:Figure {id: $target})
			MERGE (src)-[r:INFLUENCED {category: $category}]->(tgt)
			SET r.trust = $trust
		`, params)
		if err != nil {
			t.Fatalf("Failed to seed influence: %v", err)
		}
	}

	return func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (f:Figure) WHERE f.id STARTS WITH $prefix DETACH DELETE f",
			map[string]interface{}{"prefix": prefix})
	}
}

func testPrefix() string {
	return "test-" + time.Now().Format("20060102150405")
}

func TestRepository_GetEntity(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	prefix := testPrefix()
	cleanup := seedTestFigures(t, driver, prefix)
	defer cleanup()

	repo := NewRepository(driver)

	entity, err := repo.GetEntity(ctx, prefix+"-a")
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if entity.Name != "Test Figure A" {
		t.Errorf("Expected name 'Test Figure A', got '%s'", entity.Name)
	}
	if entity.DisplayName() != "Figuré A" {
		t.Errorf("Expected localized display name, got '%s'", entity.DisplayName())
	}
	if entity.BirthYear == nil || *entity.BirthYear != 1920 {
		t.Errorf("Expected birth year 1920, got %v", entity.BirthYear)
	}
}

func TestRepository_GetEntity_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	repo := NewRepository(driver)

	_, err = repo.GetEntity(ctx, "does-not-exist-"+testPrefix())
	if err == nil {
		t.Fatal("Expected an error for a missing figure")
	}
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestRepository_Relationships(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	prefix := testPrefix()
	cleanup := seedTestFigures(t, driver, prefix)
	defer cleanup()

	repo := NewRepository(driver)

	inbound, err := repo.InboundRelationships(ctx, prefix+"-b")
	if err != nil {
		t.Fatalf("InboundRelationships failed: %v", err)
	}
	if len(inbound) != 2 {
		t.Fatalf("Expected 2 inbound relationships, got %d", len(inbound))
	}
	for _, re := range inbound {
		if re.Relationship.TargetID != prefix+"-b" {
			t.Errorf("Inbound edge should target the queried figure, got %s", re.Relationship.TargetID)
		}
		if re.Entity.ID != re.Relationship.SourceID {
			t.Errorf("Resolved entity should be the far end, got %s", re.Entity.ID)
		}
	}

	outbound, err := repo.OutboundRelationships(ctx, prefix+"-a")
	if err != nil {
		t.Fatalf("OutboundRelationships failed: %v", err)
	}
	if len(outbound) != 1 {
		t.Fatalf("Expected 1 outbound relationship, got %d", len(outbound))
	}
	if outbound[0].Relationship.Category != graph.CategoryMusical {
		t.Errorf("Expected musical category, got %s", outbound[0].Relationship.Category)
	}
	if outbound[0].Relationship.Trust != graph.TrustSelfStated {
		t.Errorf("Expected self_stated trust, got %s", outbound[0].Relationship.Trust)
	}
}

func TestRepository_SearchEntities(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(ctx)

	prefix := testPrefix()
	cleanup := seedTestFigures(t, driver, prefix)
	defer cleanup()

	repo := NewRepository(driver)

	results, err := repo.SearchEntities(ctx, "Test Figure", 10)
	if err != nil {
		t.Fatalf("SearchEntities failed: %v", err)
	}
	if len(results) < 3 {
		t.Errorf("Expected at least 3 results, got %d", len(results))
	}

	// Localized names match too
	results, err = repo.SearchEntities(ctx, "Figuré", 10)
	if err != nil {
		t.Fatalf("SearchEntities failed: %v", err)
	}
	if len(results) < 1 {
		t.Errorf("Expected a match on the localized name, got %d", len(results))
	}
}
