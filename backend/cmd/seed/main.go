package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"influence-atlas/backend/internal/graph"
	"influence-atlas/backend/pkg/config"
	"influence-atlas/backend/pkg/logger"
)

type seedFigure struct {
	ID        string
	Name      string
	LocalName string
	Tags      []string
	BirthYear int
	DeathYear int
}

type seedInfluence struct {
	SourceID string
	TargetID string
	Category graph.Category
	Trust    graph.Trust
}

var figures = []seedFigure{
	{ID: "serge-gainsbourg", Name: "Serge Gainsbourg", Tags: []string{"singer", "songwriter"}, BirthYear: 1928, DeathYear: 1991},
	{ID: "boris-vian", Name: "Boris Vian", Tags: []string{"writer", "musician"}, BirthYear: 1920, DeathYear: 1959},
	{ID: "juliette-greco", Name: "Juliette Gréco", Tags: []string{"singer", "actress"}, BirthYear: 1927, DeathYear: 2020},
	{ID: "jacques-brel", Name: "Jacques Brel", Tags: []string{"singer", "songwriter"}, BirthYear: 1929, DeathYear: 1978},
	{ID: "georges-brassens", Name: "Georges Brassens", Tags: []string{"singer", "poet"}, BirthYear: 1921, DeathYear: 1981},
	{ID: "leo-ferre", Name: "Léo Ferré", Tags: []string{"singer", "anarchist"}, BirthYear: 1916, DeathYear: 1993},
	{ID: "charles-baudelaire", Name: "Charles Baudelaire", Tags: []string{"poet"}, BirthYear: 1821, DeathYear: 1867},
	{ID: "arthur-rimbaud", Name: "Arthur Rimbaud", Tags: []string{"poet"}, BirthYear: 1854, DeathYear: 1891},
	{ID: "jean-paul-sartre", Name: "Jean-Paul Sartre", Tags: []string{"philosopher"}, BirthYear: 1905, DeathYear: 1980},
	{ID: "miles-davis", Name: "Miles Davis", Tags: []string{"trumpeter", "composer"}, BirthYear: 1926, DeathYear: 1991},
	{ID: "charlie-parker", Name: "Charlie Parker", Tags: []string{"saxophonist"}, BirthYear: 1920, DeathYear: 1955},
	{ID: "jane-birkin", Name: "Jane Birkin", Tags: []string{"singer", "actress"}, BirthYear: 1946, DeathYear: 2023},
	{ID: "francoise-hardy", Name: "Françoise Hardy", Tags: []string{"singer"}, BirthYear: 1944, DeathYear: 2024},
	{ID: "bob-dylan", Name: "Bob Dylan", Tags: []string{"singer", "songwriter"}, BirthYear: 1941},
	{ID: "woody-guthrie", Name: "Woody Guthrie", Tags: []string{"folk-singer"}, BirthYear: 1912, DeathYear: 1967},
}

var influences = []seedInfluence{
	{SourceID: "boris-vian", TargetID: "serge-gainsbourg", Category: graph.CategoryMusical, Trust: graph.TrustSelfStated},
	{SourceID: "charles-baudelaire", TargetID: "serge-gainsbourg", Category: graph.CategoryLyrical, Trust: graph.TrustAcademic},
	{SourceID: "arthur-rimbaud", TargetID: "leo-ferre", Category: graph.CategoryLyrical, Trust: graph.TrustExpertDB},
	{SourceID: "charles-baudelaire", TargetID: "leo-ferre", Category: graph.CategoryLyrical, Trust: graph.TrustExpertDB},
	{SourceID: "jean-paul-sartre", TargetID: "juliette-greco", Category: graph.CategoryPhilosophical, Trust: graph.TrustWikidata},
	{SourceID: "juliette-greco", TargetID: "serge-gainsbourg", Category: graph.CategoryPersonal, Trust: graph.TrustCommunity},
	{SourceID: "georges-brassens", TargetID: "jacques-brel", Category: graph.CategoryMusical, Trust: graph.TrustExpertDB},
	{SourceID: "charlie-parker", TargetID: "miles-davis", Category: graph.CategoryMusical, Trust: graph.TrustSelfStated},
	{SourceID: "miles-davis", TargetID: "serge-gainsbourg", Category: graph.CategoryAesthetic, Trust: graph.TrustCommunity},
	{SourceID: "serge-gainsbourg", TargetID: "jane-birkin", Category: graph.CategoryPersonal, Trust: graph.TrustWikidata},
	{SourceID: "serge-gainsbourg", TargetID: "francoise-hardy", Category: graph.CategoryMusical, Trust: graph.TrustCommunity},
	{SourceID: "woody-guthrie", TargetID: "bob-dylan", Category: graph.CategoryMusical, Trust: graph.TrustSelfStated},
	{SourceID: "arthur-rimbaud", TargetID: "bob-dylan", Category: graph.CategoryLyrical, Trust: graph.TrustSelfStated},
	{SourceID: "bob-dylan", TargetID: "serge-gainsbourg", Category: graph.CategoryLyrical, Trust: graph.TrustCommunity},
}

func main() {
	wipe := flag.Bool("wipe", false, "Delete all figures before seeding")
	force := flag.Bool("force", false, "Seed even if figures already exist")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting figure seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	if *wipe {
		log.Info("Wiping existing figures...")
		if err := runWrite(ctx, driver, "MATCH (f:Figure) DETACH DELETE f", nil); err != nil {
			log.Fatal("Failed to wipe figures", zap.Error(err))
		}
	}

	// Create constraints and indexes
	log.Info("Creating constraints...")
	if err := createSchema(ctx, driver); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	if !*force && !*wipe {
		count, err := figureCount(ctx, driver)
		if err != nil {
			log.Fatal("Failed to count figures", zap.Error(err))
		}
		if count > 0 {
			log.Info("Figures already present, skipping seed (use -force to reseed)",
				zap.Int64("count", count))
			return
		}
	}

	log.Info("Seeding figures", zap.Int("figures", len(figures)), zap.Int("influences", len(influences)))

	for _, f := range figures {
		params := map[string]interface{}{
			"id":         f.ID,
			"name":       f.Name,
			"local_name": f.LocalName,
			"tags":       f.Tags,
			"birth_year": yearOrNil(f.BirthYear),
			"death_year": yearOrNil(f.DeathYear),
		}
		query := `
			MERGE (f:Figure {id: $id})
			SET f.name = $name,
			    f.local_name = $local_name,
			    f.tags = $tags,
			    f.birth_year = $birth_year,
			    f.death_year = $death_year
		`
		if err := runWrite(ctx, driver, query, params); err != nil {
			log.Fatal("Failed to seed figure", zap.String("id", f.ID), zap.Error(err))
		}
	}

	for _, inf := range influences {
		params := map[string]interface{}{
			"source":   inf.SourceID,
			"target":   inf.TargetID,
			"category": string(inf.Category),
			"trust":    string(inf.Trust),
		}
		query := `
			MATCH (src:Figure {id: $source})
			MATCH (tgt:Figure {id: $target})
			MERGE (src)-[r:INFLUENCED {category: $category}]->(tgt)
			SET r.trust = $trust
		`
		if err := runWrite(ctx, driver, query, params); err != nil {
			log.Fatal("Failed to seed influence",
				zap.String("source", inf.SourceID),
				zap.String("target", inf.TargetID),
				zap.Error(err))
		}
	}

	log.Info("Seeding complete")
}

func createSchema(ctx context.Context, driver neo4j.DriverWithContext) error {
	statements := []string{
		"CREATE CONSTRAINT figure_id IF NOT EXISTS FOR (f:Figure) REQUIRE f.id IS UNIQUE",
		"CREATE INDEX figure_name IF NOT EXISTS FOR (f:Figure) ON (f.name)",
	}
	for _, stmt := range statements {
		if err := runWrite(ctx, driver, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

func figureCount(ctx context.Context, driver neo4j.DriverWithContext) (int64, error) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, "MATCH (f:Figure) RETURN count(f) as count", nil)
	if err != nil {
		return 0, err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return 0, err
	}
	count, _ := record.Get("count")
	if n, ok := count.(int64); ok {
		return n, nil
	}
	return 0, nil
}

func runWrite(ctx context.Context, driver neo4j.DriverWithContext, query string, params map[string]interface{}) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, query, params)
	return err
}

func yearOrNil(year int) interface{} {
	if year == 0 {
		return nil
	}
	return year
}
