// Bulk importer for figure lists published as HTML tables.
//
// Expected markup: a table with class "figures" whose rows carry
// name / local name / birth-death / tags cells, and optionally a table
// with class "influences" whose rows carry source / target / category /
// trust cells. Rows without a recognizable name get a generated id.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"influence-atlas/backend/pkg/config"
	"influence-atlas/backend/pkg/logger"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func main() {
	url := flag.String("url", "", "URL of the HTML page to import")
	file := flag.String("file", "", "Local HTML file to import")
	dryRun := flag.Bool("dry-run", false, "Parse and report without writing")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	if (*url == "") == (*file == "") {
		log.Fatal("Exactly one of -url or -file is required")
	}

	doc, err := loadDocument(*url, *file)
	if err != nil {
		log.Fatal("Failed to load document", zap.Error(err))
	}

	figures := parseFigures(doc)
	influences := parseInfluences(doc)
	log.Info("Parsed document",
		zap.Int("figures", len(figures)),
		zap.Int("influences", len(influences)),
	)

	if *dryRun {
		for _, f := range figures {
			fmt.Printf("%s\t%s\n", f["id"], f["name"])
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, params := range figures {
		query := `
			MERGE (f:Figure {id: $id})
			SET f.name = $name,
			    f.local_name = $local_name,
			    f.tags = $tags,
			    f.birth_year = $birth_year,
			    f.death_year = $death_year
		`
		if _, err := session.Run(ctx, query, params); err != nil {
			log.Fatal("Failed to import figure", zap.Any("figure", params["id"]), zap.Error(err))
		}
	}

	for _, params := range influences {
		query := `
			MATCH (src:Figure {id: $source})
			MATCH (tgt:Figure {id: $target})
			MERGE (src)-[r:INFLUENCED {category: $category}]->(tgt)
			SET r.trust = $trust
		`
		if _, err := session.Run(ctx, query, params); err != nil {
			log.Fatal("Failed to import influence", zap.Any("edge", params), zap.Error(err))
		}
	}

	log.Info("Import complete")
}

func loadDocument(url, file string) (*goquery.Document, error) {
	if url != "" {
		resp, err := http.Get(url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %s", resp.Status)
		}
		return goquery.NewDocumentFromReader(resp.Body)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return goquery.NewDocumentFromReader(f)
}

func parseFigures(doc *goquery.Document) []map[string]interface{} {
	var figures []map[string]interface{}
	doc.Find("table.figures tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 1 {
			return // header row
		}

		name := strings.TrimSpace(cells.Eq(0).Text())
		if name == "" {
			return
		}

		birth, death := parseYears(strings.TrimSpace(cells.Eq(2).Text()))
		var tags []string
		for _, t := range strings.Split(cells.Eq(3).Text(), ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}

		figures = append(figures, map[string]interface{}{
			"id":         slugify(name),
			"name":       name,
			"local_name": strings.TrimSpace(cells.Eq(1).Text()),
			"tags":       tags,
			"birth_year": birth,
			"death_year": death,
		})
	})
	return figures
}

func parseInfluences(doc *goquery.Document) []map[string]interface{} {
	var influences []map[string]interface{}
	doc.Find("table.influences tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}

		source := strings.TrimSpace(cells.Eq(0).Text())
		target := strings.TrimSpace(cells.Eq(1).Text())
		if source == "" || target == "" {
			return
		}

		influences = append(influences, map[string]interface{}{
			"source":   slugify(source),
			"target":   slugify(target),
			"category": strings.ToLower(strings.TrimSpace(cells.Eq(2).Text())),
			"trust":    strings.ToLower(strings.TrimSpace(cells.Eq(3).Text())),
		})
	})
	return influences
}

// slugify derives a stable id from a name; rows with nothing usable get
// a random one
func slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return uuid.New().String()
	}
	return slug
}

// parseYears splits a "1928–1991" style range; either side may be absent
func parseYears(text string) (interface{}, interface{}) {
	text = strings.NewReplacer("–", "-", "—", "-").Replace(text)
	parts := strings.SplitN(text, "-", 2)

	var birth, death interface{}
	if y, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
		birth = y
	}
	if len(parts) == 2 {
		if y, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			death = y
		}
	}
	return birth, death
}
