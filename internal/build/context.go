package build

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Context carries the state that accumulates while a Build Plan executes:
// the resolved args and env a later step's substitution draws on, plus the
// context/target directories Copy resolves paths against.
type Context struct {
	ContextDir string // where the Jailfile and its Copy sources live
	TargetPath string // the scratch jail's root
	JailName   string

	args    map[string]string
	env     map[string]string
	workdir string
}

// NewContext starts a Context rooted at contextDir/targetPath for
// jailName, with an empty arg/env set and workdir "/".
func NewContext(contextDir, targetPath, jailName string) *Context {
	return &Context{
		ContextDir: contextDir,
		TargetPath: targetPath,
		JailName:   jailName,
		args:       make(map[string]string),
		env:        make(map[string]string),
		workdir:    "/",
	}
}

func (c *Context) SetArg(name, value string) { c.args[name] = value }
func (c *Context) GetArg(name string) (string, bool) {
	v, ok := c.args[name]
	return v, ok
}

func (c *Context) SetEnv(name, value string) { c.env[name] = value }
func (c *Context) Env() map[string]string    { return c.env }

func (c *Context) SetWorkdir(path string) { c.workdir = path }
func (c *Context) Workdir() string        { return c.workdir }

// ResolveSource resolves a Copy src relative to ContextDir, unless it's
// already absolute. A relative src whose ".." segments walk it out of
// ContextDir is rejected with ErrContextEscape rather than silently
// resolving to a path outside the build context.
func (c *Context) ResolveSource(src string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	return safeJoin(c.ContextDir, src)
}

// ResolveDest resolves a Copy dest (or any in-jail path) relative to the
// current Workdir if not absolute, then rebases it under TargetPath. A
// dest whose ".." segments would land outside TargetPath is rejected with
// ErrContextEscape instead of writing into the host path that sits there.
func (c *Context) ResolveDest(dest string) (string, error) {
	path := dest
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.workdir, path)
	}
	return safeJoin(c.TargetPath, strings.TrimPrefix(path, "/"))
}

// safeJoin joins root and entry, rejecting any result that escapes root
// via a ".." segment. Mirrors internal/ociimage and internal/export's own
// tar-traversal guard, applied here to Jailfile-declared paths instead of
// archive entry names.
func safeJoin(root, entry string) (string, error) {
	joined := filepath.Join(root, entry)
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrContextEscape, entry)
	}
	return joined, nil
}

// Substitute resolves every ${NAME} and $NAME occurrence of input against
// {args ∪ env ∪ built-ins (JAIL_NAME, WORKDIR)}. A name
// with no match in any of those sets is left untouched by design — the
// caller is responsible for calling CheckResolved first so an unresolved
// reference fails the build before any side effect, rather than silently
// passing an unsubstituted literal through to Run/Copy/Env.
func (c *Context) Substitute(input string) string {
	lookup := func(name string) (string, bool) {
		if v, ok := c.args[name]; ok {
			return v, true
		}
		if v, ok := c.env[name]; ok {
			return v, true
		}
		switch name {
		case "JAIL_NAME":
			return c.JailName, true
		case "WORKDIR":
			return c.workdir, true
		}
		return "", false
	}
	return expandVars(input, lookup)
}

// CheckResolved reports the first ${NAME}/$NAME reference in input that
// Substitute would leave unresolved, so the caller can fail the build
// before the step's side effect runs ("Unresolved variable
// → build fails before any side effect").
func (c *Context) CheckResolved(input string) error {
	var unresolved string
	expandVars(input, func(name string) (string, bool) {
		if v, ok := c.args[name]; ok {
			return v, true
		}
		if v, ok := c.env[name]; ok {
			return v, true
		}
		switch name {
		case "JAIL_NAME":
			return c.JailName, true
		case "WORKDIR":
			return c.workdir, true
		}
		if unresolved == "" {
			unresolved = name
		}
		return "", false
	})
	if unresolved != "" {
		return fmt.Errorf("%w: %s", ErrUnresolvedVariable, unresolved)
	}
	return nil
}

// expandVars walks input once, replacing ${NAME} and bare $NAME
// references via lookup. A reference lookup fails to resolve leaves the
// original "${NAME}"/"$NAME" text in place so CheckResolved can spot it.
func expandVars(input string, lookup func(name string) (string, bool)) string {
	var out strings.Builder
	i := 0
	for i < len(input) {
		if input[i] != '$' || i+1 >= len(input) {
			out.WriteByte(input[i])
			i++
			continue
		}

		if input[i+1] == '{' {
			end := strings.IndexByte(input[i+2:], '}')
			if end < 0 {
				out.WriteByte(input[i])
				i++
				continue
			}
			name := input[i+2 : i+2+end]
			if v, ok := lookup(name); ok {
				out.WriteString(v)
			} else {
				out.WriteString(input[i : i+2+end+1])
			}
			i += 2 + end + 1
			continue
		}

		j := i + 1
		for j < len(input) && isNameByte(input[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte(input[i])
			i++
			continue
		}
		name := input[i+1 : j]
		if v, ok := lookup(name); ok {
			out.WriteString(v)
		} else {
			out.WriteString(input[i:j])
		}
		i = j
	}
	return out.String()
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
