package analyze

import (
	"fmt"
	"regexp"
	"strings"
)

// pythonVariant extracts outlines and imports from Python source by
// line scanning. Signatures split across lines lose their return
// annotation; that is acceptable for an outline.
type pythonVariant struct{}

var (
	pyClassRe  = regexp.MustCompile(`^class\s+(\w+)`)
	pyDefRe    = regexp.MustCompile(`^(\s*)(async\s+)?def\s+(\w+)\s*\(`)
	pyReturnRe = regexp.MustCompile(`->\s*([^:]+):\s*$`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+(.+)$`)
	pyFromRe   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+(.+)$`)
)

type pyFunc struct {
	name    string
	line    int
	async   bool
	returns string
}

type pyClass struct {
	name    string
	methods []pyFunc
}

func (p *pythonVariant) extractStructure(content string) string {
	lines := splitLines(content)

	type node struct {
		class *pyClass
		fn    *pyFunc
	}
	var nodes []node
	var current *pyClass
	methodIndent := -1

	for i, line := range lines {
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			current = &pyClass{name: m[1]}
			methodIndent = -1
			nodes = append(nodes, node{class: current})
			continue
		}
		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			fn := pyFunc{
				name:  m[3],
				line:  i + 1,
				async: m[2] != "",
			}
			if r := pyReturnRe.FindStringSubmatch(line); r != nil {
				fn.returns = strings.TrimSpace(r[1])
			}
			indent := len(m[1])
			if indent == 0 {
				current = nil
				nodes = append(nodes, node{fn: &fn})
				continue
			}
			if current == nil {
				continue // nested inside a top-level function
			}
			if methodIndent == -1 {
				methodIndent = indent
			}
			if indent == methodIndent {
				current.methods = append(current.methods, fn)
			}
			continue
		}
		// Any other unindented statement ends the class body.
		if current != nil && line != "" && line[0] != ' ' && line[0] != '\t' {
			current = nil
		}
	}

	var out []string
	classCount, methodCount, funcCount := 0, 0, 0

	for _, n := range nodes {
		if n.class != nil {
			classCount++
			out = append(out, fmt.Sprintf("class %s:", n.class.name))
			for i, m := range n.class.methods {
				prefix := "├──"
				if i == len(n.class.methods)-1 {
					prefix = "└──"
				}
				out = append(out, fmt.Sprintf("  %s %s%s()%s (Line %d)",
					prefix, asyncPrefix(m.async), m.name, returnHint(m.returns), m.line))
				methodCount++
			}
			if len(n.class.methods) == 0 {
				out = append(out, "  └── (no methods)")
			}
			out = append(out, "")
			continue
		}
		funcCount++
		out = append(out, fmt.Sprintf("%sdef %s()%s: (Line %d)",
			asyncPrefix(n.fn.async), n.fn.name, returnHint(n.fn.returns), n.fn.line))
		out = append(out, "")
	}

	if len(out) == 0 {
		return "No classes or functions found"
	}
	out = append(out, fmt.Sprintf("Summary: %d classes, %d methods, %d standalone functions",
		classCount, methodCount, funcCount))
	return strings.Join(out, "\n")
}

func (p *pythonVariant) extractDependencies(content string) string {
	var internal, external []string

	for _, line := range splitLines(content) {
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			module := m[1]
			names := cleanImportNames(m[2])
			imp := fmt.Sprintf("from %s import %s", module, strings.Join(names, ", "))
			if pyIsInternal(module) {
				internal = append(internal, imp)
			} else {
				external = append(external, imp)
			}
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			for _, name := range cleanImportNames(m[1]) {
				imp := "import " + name
				if pyIsInternal(name) {
					internal = append(internal, imp)
				} else {
					external = append(external, imp)
				}
			}
		}
	}

	return renderDependencies(internal, external)
}

// cleanImportNames splits a comma-separated import clause and strips
// "as" aliases.
func cleanImportNames(clause string) []string {
	var names []string
	for _, part := range strings.Split(clause, ",") {
		name := strings.TrimSpace(part)
		if idx := strings.Index(name, " as "); idx >= 0 {
			name = name[:idx]
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

var pyStdlib = map[string]struct{}{
	"os": {}, "sys": {}, "re": {}, "json": {}, "ast": {}, "typing": {}, "pathlib": {},
	"collections": {}, "dataclasses": {}, "datetime": {}, "time": {}, "math": {},
	"random": {}, "itertools": {}, "functools": {}, "operator": {}, "copy": {},
	"io": {}, "csv": {}, "sqlite3": {}, "pickle": {}, "shelve": {}, "dbm": {},
	"argparse": {}, "logging": {}, "unittest": {}, "pytest": {}, "asyncio": {},
	"concurrent": {}, "threading": {}, "multiprocessing": {}, "subprocess": {},
	"socket": {}, "http": {}, "urllib": {}, "email": {}, "xml": {}, "html": {},
}

var pyCommonExternal = map[string]struct{}{
	"pydantic": {}, "fastapi": {}, "flask": {}, "django": {},
	"numpy": {}, "pandas": {}, "requests": {}, "aiohttp": {},
}

// pyIsInternal classifies a module as project-internal. Relative
// imports are internal; known stdlib and common packages are external;
// everything else is assumed internal.
func pyIsInternal(module string) bool {
	if module == "" {
		return false
	}
	if strings.HasPrefix(module, ".") {
		return true
	}
	first := strings.SplitN(module, ".", 2)[0]
	if _, ok := pyStdlib[first]; ok {
		return false
	}
	if _, ok := pyCommonExternal[first]; ok {
		return false
	}
	return true
}

func asyncPrefix(async bool) string {
	if async {
		return "async "
	}
	return ""
}

func returnHint(returns string) string {
	if returns == "" {
		return ""
	}
	return " -> " + returns
}

// renderDependencies formats internal and external import sections.
func renderDependencies(internal, external []string) string {
	var lines []string
	if len(internal) > 0 {
		lines = append(lines, "Internal Dependencies:")
		for _, imp := range internal {
			lines = append(lines, "  "+imp)
		}
		lines = append(lines, "")
	}
	if len(external) > 0 {
		lines = append(lines, "External Dependencies:")
		for _, imp := range external {
			lines = append(lines, "  "+imp)
		}
	}
	if len(lines) == 0 {
		return "No imports found"
	}
	return strings.Join(lines, "\n")
}
