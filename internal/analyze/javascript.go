package analyze

import (
	"fmt"
	"regexp"
	"strings"
)

// javascriptVariant handles JavaScript and TypeScript. Extraction is
// regex-based line scanning; class extents are tracked by brace
// counting.
type javascriptVariant struct{}

var (
	jsClassRe  = regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`)
	jsMethodRe = regexp.MustCompile(`^\s*(static\s+)?(async\s+)?(\w+)\s*\([^)]*\)(?::\s*[^{]+)?\s*\{`)
	jsFuncRe   = regexp.MustCompile(`^\s*(?:export\s+)?(async\s+)?function\s+(\w+)(?:<[^>]+>)?\s*\(`)
	jsArrowRe  = regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(async\s+)?\([^)]*\)(?::\s*[^=]+)?\s*=>`)

	jsES6ImportRe  = regexp.MustCompile(`^import\s+.*?\s+from\s+['"]([^'"]+)['"]`)
	jsSideEffectRe = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)
)

type jsMethod struct {
	name   string
	line   int
	async  bool
	static bool
}

type jsClass struct {
	name    string
	line    int
	methods []jsMethod
	endLine int
}

type jsFunc struct {
	name  string
	line  int
	async bool
	arrow bool
}

func (j *javascriptVariant) extractStructure(content string) string {
	lines := splitLines(content)
	classes := j.findClasses(lines)

	var out []string
	classCount, methodCount, funcCount := 0, 0, 0

	for _, c := range classes {
		classCount++
		out = append(out, fmt.Sprintf("class %s:", c.name))
		for i, m := range c.methods {
			prefix := "├──"
			if i == len(c.methods)-1 {
				prefix = "└──"
			}
			var modifiers []string
			if m.static {
				modifiers = append(modifiers, "static")
			}
			if m.async {
				modifiers = append(modifiers, "async")
			}
			modifier := strings.Join(modifiers, " ")
			if modifier != "" {
				modifier += " "
			}
			out = append(out, fmt.Sprintf("  %s %s%s() (Line %d)", prefix, modifier, m.name, m.line))
			methodCount++
		}
		if len(c.methods) == 0 {
			out = append(out, "  └── (no methods)")
		}
		out = append(out, "")
	}

	for _, f := range j.findFunctions(lines, classes) {
		arrow := ""
		if f.arrow {
			arrow = " =>"
		}
		out = append(out, fmt.Sprintf("%sfunction %s()%s (Line %d)",
			asyncPrefix(f.async), f.name, arrow, f.line))
		out = append(out, "")
		funcCount++
	}

	if len(out) == 0 {
		return "No classes or functions found"
	}
	out = append(out, fmt.Sprintf("Summary: %d classes, %d methods, %d standalone functions",
		classCount, methodCount, funcCount))
	return strings.Join(out, "\n")
}

// findClasses locates each class and the methods in its body. The
// method pattern must run before the brace adjustment so a method
// opening the line still counts.
func (j *javascriptVariant) findClasses(lines []string) []jsClass {
	var classes []jsClass

	i := 0
	for i < len(lines) {
		m := jsClassRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		c := jsClass{name: m[1], line: i + 1}

		braces := 0
		k := i
		for k < len(lines) {
			line := lines[k]
			if mm := jsMethodRe.FindStringSubmatch(line); mm != nil && k > i {
				c.methods = append(c.methods, jsMethod{
					name:   mm[3],
					line:   k + 1,
					async:  mm[2] != "",
					static: mm[1] != "",
				})
			}
			braces += strings.Count(line, "{") - strings.Count(line, "}")
			if k > i && braces <= 0 {
				break
			}
			k++
		}
		c.endLine = k + 1
		classes = append(classes, c)
		i = k
	}
	return classes
}

// findFunctions locates standalone declarations and arrow assignments
// outside any class body.
func (j *javascriptVariant) findFunctions(lines []string, classes []jsClass) []jsFunc {
	inClass := make(map[int]bool)
	for _, c := range classes {
		for n := c.line; n <= c.endLine; n++ {
			inClass[n] = true
		}
	}

	var funcs []jsFunc
	for i, line := range lines {
		lineNum := i + 1
		if inClass[lineNum] {
			continue
		}
		if m := jsFuncRe.FindStringSubmatch(line); m != nil {
			funcs = append(funcs, jsFunc{name: m[2], line: lineNum, async: m[1] != ""})
			continue
		}
		if m := jsArrowRe.FindStringSubmatch(line); m != nil {
			funcs = append(funcs, jsFunc{name: m[1], line: lineNum, async: m[2] != "", arrow: true})
		}
	}
	return funcs
}

func (j *javascriptVariant) extractDependencies(content string) string {
	var internal, external []string

	classify := func(module, line string) {
		if jsIsInternal(module) {
			internal = append(internal, line)
		} else {
			external = append(external, line)
		}
	}

	for _, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)

		if m := jsES6ImportRe.FindStringSubmatch(line); m != nil {
			classify(m[1], line)
			continue
		}
		if m := jsSideEffectRe.FindStringSubmatch(line); m != nil {
			classify(m[1], line)
			continue
		}
		if m := jsRequireRe.FindStringSubmatch(line); m != nil {
			classify(m[1], line)
		}
	}

	return renderDependencies(internal, external)
}

// jsIsInternal reports whether an import path refers to project code
// rather than an npm package.
func jsIsInternal(module string) bool {
	return strings.HasPrefix(module, "./") ||
		strings.HasPrefix(module, "../") ||
		strings.HasPrefix(module, "@/")
}
