package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver is the subset of a Bolt driver the analysis archive needs.
// Results are eager: archive rows are small and read in full.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any) (neo4j.EagerResult, error)
	VerifyConnectivity(ctx context.Context) error
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
