package cache

import (
	"github.com/matzehuels/lanemap/pkg/grid"
	"github.com/matzehuels/lanemap/pkg/layout"
)

// Keyer builds cache keys.
type Keyer interface {
	// DiagramKey identifies a laid out diagram.
	DiagramKey(snapshotHash string, opts DiagramKeyOpts) string
	// ArtifactKey identifies a rendered artifact of a diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// DiagramKeyOpts are the layout inputs besides the snapshot.
type DiagramKeyOpts struct {
	Geometry grid.Geometry `json:"geometry"`
	Layout   layout.Config `json:"layout"`
}

// ArtifactKeyOpts are the render inputs besides the diagram.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Renderer string `json:"renderer,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// DiagramKey returns "diagram:<hash>".
func (DefaultKeyer) DiagramKey(snapshotHash string, opts DiagramKeyOpts) string {
	return hashKey("diagram", snapshotHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}
