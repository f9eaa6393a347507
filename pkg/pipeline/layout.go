package pipeline

import (
	"github.com/matzehuels/lanemap/pkg/diagram"
	"github.com/matzehuels/lanemap/pkg/process"
)

// Layout builds the diagram for a snapshot. It does not touch any cache.
func Layout(snap process.Snapshot, opts Options) *diagram.Diagram {
	opts.SetLayoutDefaults()
	return diagram.Build(snap, diagram.Options{
		Geometry: opts.Geometry,
		Layout:   opts.Layout,
		Logger:   opts.Logger,
	})
}
