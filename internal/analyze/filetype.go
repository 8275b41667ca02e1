package analyze

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileType categorizes a file by extension. The value doubles as the
// display name.
type FileType string

const (
	TypePython     FileType = "Python"
	TypeJavaScript FileType = "JavaScript"
	TypeTypeScript FileType = "TypeScript"
	TypeMarkdown   FileType = "Markdown"
	TypeText       FileType = "Text"
	TypeJSON       FileType = "JSON"
	TypeYAML       FileType = "YAML"
	TypeShell      FileType = "Shell"
	TypeGo         FileType = "Go"
	TypeRust       FileType = "Rust"
	TypeC          FileType = "C"
	TypeCPP        FileType = "C++"
	TypeUnknown    FileType = "Unknown"
)

var extensionTypes = map[string]FileType{
	".py":   TypePython,
	".js":   TypeJavaScript,
	".jsx":  TypeJavaScript,
	".ts":   TypeTypeScript,
	".tsx":  TypeTypeScript,
	".md":   TypeMarkdown,
	".txt":  TypeText,
	".json": TypeJSON,
	".yaml": TypeYAML,
	".yml":  TypeYAML,
	".sh":   TypeShell,
	".bash": TypeShell,
	".go":   TypeGo,
	".rs":   TypeRust,
	".c":    TypeC,
	".h":    TypeC,
	".cpp":  TypeCPP,
	".hpp":  TypeCPP,
	".cc":   TypeCPP,
	".cxx":  TypeCPP,
}

// DetectType maps a file path to its type by extension.
func DetectType(path string) FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return TypeUnknown
}

// IsCode reports whether the type is a programming language.
func (t FileType) IsCode() bool {
	switch t {
	case TypePython, TypeJavaScript, TypeTypeScript, TypeGo, TypeRust, TypeC, TypeCPP, TypeShell:
		return true
	}
	return false
}

// IsText reports whether the type is documentation or prose.
func (t FileType) IsText() bool {
	return t == TypeMarkdown || t == TypeText
}

// validateSameCategory checks that all paths analyze together sensibly:
// all code, all text, or all the same type.
func validateSameCategory(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	types := make([]FileType, len(paths))
	for i, p := range paths {
		types[i] = DetectType(p)
	}

	allCode, allText := true, true
	uniform := true
	for _, t := range types {
		if !t.IsCode() {
			allCode = false
		}
		if !t.IsText() {
			allText = false
		}
		if t != types[0] {
			uniform = false
		}
	}
	if allCode || allText || uniform {
		return nil
	}

	var b strings.Builder
	b.WriteString("cannot analyze mixed file types:\n")
	for i, p := range paths {
		kind := "text"
		if types[i].IsCode() {
			kind = "code"
		}
		fmt.Fprintf(&b, "  %s: %s (%s)\n", filepath.Base(p), types[i], kind)
	}
	b.WriteString("analyze separately or ensure all files are the same type")
	return fmt.Errorf("%s", b.String())
}
