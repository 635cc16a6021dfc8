// Package build implements the Build Planner: parsing a Jailfile (either
// surface syntax) into a Build Plan, and executing that plan against a
// scratch jail to produce a new, named base release.
package build

// StepKind identifies which variant a BuildStep carries. Exactly one of
// the BuildStep's fields is meaningful for a given Kind, mirroring
// a "variant" framing without a sum type in the language.
type StepKind string

const (
	StepRun      StepKind = "run"
	StepCopy     StepKind = "copy"
	StepEnv      StepKind = "env"
	StepWorkdir  StepKind = "workdir"
	StepArg      StepKind = "arg"
	StepExpose   StepKind = "expose"
	StepCmd      StepKind = "cmd"
	StepMetadata StepKind = "metadata"
)

// BuildStep is one instruction of a Build Plan. Only the fields relevant
// to Kind are populated; the rest stay at their zero value.
type BuildStep struct {
	Kind StepKind

	// Run
	Command string

	// Copy
	Src  string
	Dest string

	// Env, Arg, Metadata, Label
	Key        string
	Value      string
	HasDefault bool // Arg only: whether Value is a declared default

	// Workdir
	Path string

	// Expose
	Port     int
	Protocol string

	// Cmd
	Cmd string
}

// BuildPlan is the variant-sequence a build runs: a base release, an
// ordered list of steps, and the declared metadata both parsers must
// agree on regardless of which surface syntax produced it.
type BuildPlan struct {
	BaseRelease  string
	Steps        []BuildStep
	Metadata     map[string]string
	DeclaredArgs []BuildArg
	ExposedPorts []ExposeSpec
	Cmd          string
	Entrypoint   string
	User         string
}

// BuildArg is an `Arg` declaration: a name and an optional default.
type BuildArg struct {
	Name       string
	Default    string
	HasDefault bool
}

// ExposeSpec is a declared `Expose` step, kept denormalized on BuildPlan
// alongside the step list so a caller doesn't have to re-scan Steps to
// learn what a built release exposes.
type ExposeSpec struct {
	Port     int
	Protocol string
}
