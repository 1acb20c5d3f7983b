package source

import (
	"context"

	"mercator-hq/europa/pkg/policy/session"
)

// Bundle is one coherent snapshot of policy input: the modules to compile
// together and the external data document, empty when the source has none.
type Bundle struct {
	Files    []session.File
	DataJSON string
}

// Source loads policy bundles. Implementations must be safe for repeated
// calls; Load is invoked once at startup and again on every reload.
type Source interface {
	Load(ctx context.Context) (*Bundle, error)
}

// Apply loads a bundle from src and swaps it into the session under the
// given query path. On any failure the session keeps its previous policy.
func Apply(ctx context.Context, src Source, sess *session.Session, queryPath string) error {
	bundle, err := src.Load(ctx)
	if err != nil {
		return err
	}
	return sess.LoadFiles(bundle.Files, bundle.DataJSON, queryPath)
}
