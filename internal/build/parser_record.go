package build

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// recordDoc mirrors the structured-record surface syntax: the same
// semantics as the line format, expressed as YAML fields instead of
// instruction keywords.
type recordDoc struct {
	From    string            `yaml:"from"`
	Workdir string            `yaml:"workdir"`
	Args    []recordArg       `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Run     []string          `yaml:"run"`
	Copy    []recordCopy      `yaml:"copy"`
	Expose  []recordExpose    `yaml:"expose"`
	Labels  map[string]string `yaml:"labels"`
	Cmd     string            `yaml:"cmd"`

	Entrypoint string `yaml:"entrypoint"`
	User       string `yaml:"user"`
}

type recordArg struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
}

type recordCopy struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
}

type recordExpose struct {
	Port     int    `yaml:"port"`
	Protocol string `yaml:"protocol"`
}

// ParseRecord parses the structured-record surface syntax into a
// BuildPlan. Steps come out in a fixed order, whatever the field order in
// the YAML document: every declared Arg, then WORKDIR (if set), then Env
// entries sorted by key, then every Run, then every Copy, then Expose,
// then Labels (as Metadata, sorted by key), then Cmd. Only Arg needs to
// precede any step substituting against it, which this ordering satisfies
// without needing a single combined instruction list in the document
// itself.
func ParseRecord(r io.Reader) (*BuildPlan, error) {
	var doc recordDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode build record: %w", err)
	}

	plan := &BuildPlan{
		BaseRelease: doc.From,
		Metadata:    make(map[string]string),
		Cmd:         doc.Cmd,
		Entrypoint:  doc.Entrypoint,
		User:        doc.User,
	}
	if plan.BaseRelease == "" {
		return nil, ErrNoBaseRelease
	}

	for _, a := range doc.Args {
		hasDefault := a.Default != ""
		plan.DeclaredArgs = append(plan.DeclaredArgs, BuildArg{Name: a.Name, Default: a.Default, HasDefault: hasDefault})
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepArg, Key: a.Name, Value: a.Default, HasDefault: hasDefault})
	}

	if doc.Workdir != "" {
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepWorkdir, Path: doc.Workdir})
	}

	for _, name := range sortedKeys(doc.Env) {
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepEnv, Key: name, Value: doc.Env[name]})
	}

	for _, cmd := range doc.Run {
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepRun, Command: cmd})
	}

	for _, c := range doc.Copy {
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepCopy, Src: c.Src, Dest: c.Dest})
	}

	for _, e := range doc.Expose {
		proto := e.Protocol
		if proto == "" {
			proto = "tcp"
		}
		plan.ExposedPorts = append(plan.ExposedPorts, ExposeSpec{Port: e.Port, Protocol: proto})
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepExpose, Port: e.Port, Protocol: proto})
	}

	for _, name := range sortedKeys(doc.Labels) {
		plan.Metadata[name] = doc.Labels[name]
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepMetadata, Key: name, Value: doc.Labels[name]})
	}

	if doc.Cmd != "" {
		plan.Steps = append(plan.Steps, BuildStep{Kind: StepCmd, Cmd: doc.Cmd})
	}

	return plan, nil
}

// sortedKeys returns m's keys in sorted order, so a record's map-typed
// fields (env, labels — YAML maps have no inherent order) still produce a
// deterministic step sequence: a given Build Plan source always yields
// the same step sequence.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
