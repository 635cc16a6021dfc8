package build

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseImperative parses the line-based surface syntax (one instruction
// per line, Dockerfile-like) into a BuildPlan. Blank lines and lines
// starting with "#" are skipped.
func ParseImperative(content string) (*BuildPlan, error) {
	plan := &BuildPlan{Metadata: make(map[string]string)}

	for lineNo, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		word, rest := splitInstruction(line)
		switch strings.ToUpper(word) {
		case "FROM":
			plan.BaseRelease = rest

		case "ARG":
			name, def, hasDef := splitKV(rest)
			plan.DeclaredArgs = append(plan.DeclaredArgs, BuildArg{Name: name, Default: def, HasDefault: hasDef})
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepArg, Key: name, Value: def, HasDefault: hasDef})

		case "ENV":
			name, value, _ := splitKV(rest)
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepEnv, Key: name, Value: value})

		case "RUN":
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepRun, Command: rest})

		case "COPY":
			src, dest, err := splitTwo(rest, "COPY")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepCopy, Src: src, Dest: dest})

		case "WORKDIR":
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepWorkdir, Path: rest})

		case "EXPOSE":
			port, proto, err := parseExpose(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			plan.ExposedPorts = append(plan.ExposedPorts, ExposeSpec{Port: port, Protocol: proto})
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepExpose, Port: port, Protocol: proto})

		case "CMD":
			plan.Cmd = rest
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepCmd, Cmd: rest})

		case "ENTRYPOINT":
			plan.Entrypoint = rest

		case "USER":
			plan.User = rest

		case "LABEL":
			name, value, _ := splitKV(rest)
			plan.Metadata[name] = value
			plan.Steps = append(plan.Steps, BuildStep{Kind: StepMetadata, Key: name, Value: value})

		default:
			return nil, fmt.Errorf("line %d: %w: %s", lineNo+1, ErrUnknownInstruction, line)
		}
	}

	if plan.BaseRelease == "" {
		return nil, ErrNoBaseRelease
	}
	return plan, nil
}

func splitInstruction(line string) (word, rest string) {
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' })
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// splitKV splits "NAME=value" or "NAME value" into name/value. hasValue
// reports whether an "=" or space-separated value was present at all
// (distinguishing "ARG FOO" with no default from "ARG FOO=").
func splitKV(s string) (name, value string, hasValue bool) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		return s[:i], s[i+1:], true
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:]), true
	}
	return s, "", false
}

func splitTwo(s, instruction string) (a, b string, err error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%s requires a source and destination: %q", instruction, s)
	}
	return fields[0], strings.Join(fields[1:], " "), nil
}

func parseExpose(s string) (port int, proto string, err error) {
	proto = "tcp"
	spec := s
	if i := strings.IndexByte(s, '/'); i >= 0 {
		spec = s[:i]
		proto = s[i+1:]
	}
	port, err = strconv.Atoi(strings.TrimSpace(spec))
	if err != nil {
		return 0, "", fmt.Errorf("invalid EXPOSE port %q: %w", s, err)
	}
	return port, proto, nil
}
