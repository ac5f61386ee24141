package release

// Source selects how binaries are obtained. Exactly one variant is consumed by an install:
// Precompiled goes through fetch and verify, FromSource goes through a build and never
// touches the fetcher.
type Source interface {
	// Kind names the install mode, "precompiled" or "source".
	Kind() string
}

// Install modes accepted in configuration.
const (
	ModePrecompiled = "precompiled"
	ModeSource      = "source"
)

// Precompiled installs the published artifact described by Descriptor.
type Precompiled struct {
	Descriptor ArtifactDescriptor
}

// Kind implements Source.
func (Precompiled) Kind() string { return ModePrecompiled }

// FromSource builds the binaries from a checkout (head mode).
type FromSource struct {
	Build BuildSpec
}

// Kind implements Source.
func (FromSource) Kind() string { return ModeSource }

// BuildSpec tells the build collaborator where the sources are.
type BuildSpec struct {
	// Repository is the git URL cloned when Dir is empty.
	Repository string
	// Branch is the branch cloned from Repository.
	Branch string
	// Dir is an existing checkout; when set nothing is cloned.
	Dir string
}
