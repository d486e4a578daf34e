// Package store implements the persistent entity/relationship store over
// Neo4j. It is the external collaborator consumed by the explorer; the
// in-memory graph never talks to Neo4j directly.
package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"influence-atlas/backend/internal/graph"
	apperrors "influence-atlas/backend/pkg/errors"
	"influence-atlas/backend/pkg/logger"
)

// RelatedEntity is a relationship together with its resolved far-end entity
type RelatedEntity struct {
	Relationship graph.Relationship
	Entity       graph.Entity
}

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new figure repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// GetEntity retrieves a single figure by id
func (r *Repository) GetEntity(ctx context.Context, id string) (*graph.Entity, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (f:Figure {id: $id})
		RETURN f.id as id,
		       f.name as name,
		       f.local_name as local_name,
		       f.tags as tags,
		       f.birth_year as birth_year,
		       f.death_year as death_year,
		       f.image_url as image_url,
		       f.links as links
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		return nil, apperrors.NewTransport(id, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, apperrors.NewTransport(id, err)
		}
		return nil, apperrors.NewEntityNotFound(id)
	}

	entity := entityFromRecord(result.Record())
	return &entity, nil
}

// InboundRelationships retrieves all influence edges into a figure, each
// with its resolved source entity
func (r *Repository) InboundRelationships(ctx context.Context, id string) ([]RelatedEntity, error) {
	query := `
		MATCH (src:Figure)-[rel:INFLUENCED]->(f:Figure {id: $id})
		RETURN src.id as id,
		       src.name as name,
		       src.local_name as local_name,
		       src.tags as tags,
		       src.birth_year as birth_year,
		       src.death_year as death_year,
		       src.image_url as image_url,
		       src.links as links,
		       rel.category as category,
		       rel.trust as trust
	`
	return r.fetchRelated(ctx, id, query, true)
}

// OutboundRelationships retrieves all influence edges out of a figure,
// each with its resolved target entity
func (r *Repository) OutboundRelationships(ctx context.Context, id string) ([]RelatedEntity, error) {
	query := `
		MATCH (f:Figure {id: $id})-[rel:INFLUENCED]->(tgt:Figure)
		RETURN tgt.id as id,
		       tgt.name as name,
		       tgt.local_name as local_name,
		       tgt.tags as tags,
		       tgt.birth_year as birth_year,
		       tgt.death_year as death_year,
		       tgt.image_url as image_url,
		       tgt.links as links,
		       rel.category as category,
		       rel.trust as trust
	`
	return r.fetchRelated(ctx, id, query, false)
}

func (r *Repository) fetchRelated(ctx context.Context, id, query string, inbound bool) ([]RelatedEntity, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		return nil, apperrors.NewTransport(id, err)
	}

	var related []RelatedEntity
	for result.Next(ctx) {
		record := result.Record()
		entity := entityFromRecord(record)

		rel := graph.Relationship{
			Category: graph.Category(getStringFromRecord(record, "category")),
			Trust:    graph.Trust(getStringFromRecord(record, "trust")),
		}
		if inbound {
			rel.SourceID = entity.ID
			rel.TargetID = id
		} else {
			rel.SourceID = id
			rel.TargetID = entity.ID
		}

		related = append(related, RelatedEntity{Relationship: rel, Entity: entity})
	}
	if err := result.Err(); err != nil {
		return nil, apperrors.NewTransport(id, err)
	}

	return related, nil
}

// SearchEntities finds figures whose name or localized name contains the
// given text. Consumed only as a selection source.
func (r *Repository) SearchEntities(ctx context.Context, text string, limit int) ([]graph.Entity, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	if limit < 1 {
		limit = 10
	}

	query := `
		MATCH (f:Figure)
		WHERE toLower(f.name) CONTAINS toLower($text)
		   OR toLower(coalesce(f.local_name, '')) CONTAINS toLower($text)
		RETURN f.id as id,
		       f.name as name,
		       f.local_name as local_name,
		       f.tags as tags,
		       f.birth_year as birth_year,
		       f.death_year as death_year,
		       f.image_url as image_url,
		       f.links as links
		ORDER BY f.name
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"text":  text,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search figures: %w", err)
	}

	var entities []graph.Entity
	for result.Next(ctx) {
		entities = append(entities, entityFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	r.logger.Debug("Figure search completed",
		zap.String("text", text),
		zap.Int("results", len(entities)),
	)
	return entities, nil
}

func entityFromRecord(record *neo4j.Record) graph.Entity {
	return graph.Entity{
		ID:        getStringFromRecord(record, "id"),
		Name:      getStringFromRecord(record, "name"),
		LocalName: getStringFromRecord(record, "local_name"),
		Tags:      getStringSliceFromRecord(record, "tags"),
		BirthYear: getIntPtrFromRecord(record, "birth_year"),
		DeathYear: getIntPtrFromRecord(record, "death_year"),
		ImageURL:  getStringFromRecord(record, "image_url"),
		Links:     getStringSliceFromRecord(record, "links"),
	}
}
