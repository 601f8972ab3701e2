package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vosbek/docxp/internal/core/domain"
)

// Store records entity dependency edges in Neo4j. Entities become (:Entity)
// nodes, their imports (:Module) nodes, connected by DEPENDS_ON. It satisfies
// ports.DependencyGraph.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

func New(ctx context.Context, uri, user, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver, database: database}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ReplaceScope deletes every entity node recorded for the scope. Module
// nodes are shared across scopes and stay behind; orphans are harmless.
func (s *Store) ReplaceScope(ctx context.Context, scope domain.SearchScope) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
MATCH (e:Entity {repo_id: $repoID, commit: $commit})
DETACH DELETE e
`, map[string]any{
			"repoID": scope.RepoID,
			"commit": scope.Commit,
		})
	})
	if err != nil {
		return fmt.Errorf("clear graph scope: %w", err)
	}
	return nil
}

func (s *Store) RecordDependencies(ctx context.Context, scope domain.SearchScope, entities []domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, map[string]any{
			"name":     e.Name,
			"kind":     string(e.Kind),
			"path":     e.FilePath,
			"start":    e.LineNumber,
			"end":      e.EndLine,
			"language": e.Language,
			"deps":     e.Dependencies,
		})
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
UNWIND $rows AS row
MERGE (e:Entity {repo_id: $repoID, commit: $commit, path: row.path, start: row.start, end: row.end})
SET e.name = row.name, e.kind = row.kind, e.language = row.language
WITH e, row
UNWIND coalesce(row.deps, []) AS dep
MERGE (m:Module {name: dep})
MERGE (e)-[:DEPENDS_ON]->(m)
`, map[string]any{
			"repoID": scope.RepoID,
			"commit": scope.Commit,
			"rows":   rows,
		})
	})
	if err != nil {
		return fmt.Errorf("record dependency edges: %w", err)
	}
	return nil
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}
