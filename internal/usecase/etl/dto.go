package etl

// GenerateResult describes a completed generate stage.
type GenerateResult struct {
	Path    string
	Written int
}

// TransformResult describes a completed transform stage.
type TransformResult struct {
	Path    string
	Read    int
	Kept    int
	Dropped int
}

// LoadResult describes a completed load stage. FirstKey and LastKey are zero
// when nothing was inserted.
type LoadResult struct {
	Inserted int
	FirstKey int64
	LastKey  int64
}

// Options holds the per-run pipeline parameters.
type Options struct {
	NumRecords      int
	RawFile         string
	TransformedFile string
}
