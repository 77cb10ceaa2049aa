package main

import (
	"github.com/nicolagi/t8mesh/internal/meshdesc"
	"github.com/nicolagi/t8mesh/internal/scheme"
)

// schemeFor infers a MortonScheme from the description's first tree, the
// only element classes MortonScheme refines. Mirrors cmd/meshctl's
// pickScheme, kept separate since meshd reports failure through a
// returned error rather than exiting the process directly.
func schemeFor(spec *meshdesc.Spec) (*scheme.MortonScheme, error) {
	return scheme.NewMorton(spec.Trees[0].Eclass)
}
