package autobump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// Manifest is a project file carrying the version being bumped.
type Manifest interface {
	// Path is the manifest file path.
	Path() string
	// Version reads the current version.
	Version() (string, error)
	// SetVersion writes version (no "v" prefix) back to the manifest.
	SetVersion(version string) error
	// Files lists every file written by the last SetVersion.
	Files() []string
}

// OpenManifest picks a manifest implementation from the file name:
// *.json (package.json), *.toml (Cargo.toml) or *.go (a Version variable).
func OpenManifest(path string) (Manifest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &jsonManifest{path: path}, nil
	case ".toml":
		return &cargoManifest{path: path}, nil
	case ".go":
		return &goVersionFile{path: path}, nil
	}
	return nil, NewConfigError("manifest", path, errors.New("unsupported manifest type, expected .json, .toml or .go"))
}

func readManifest(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// jsonManifest is an npm style package.json.
type jsonManifest struct {
	path    string
	written []string
}

func (m *jsonManifest) Path() string    { return m.path }
func (m *jsonManifest) Files() []string { return m.written }

func (m *jsonManifest) Version() (string, error) {
	data, err := readManifest(m.path)
	if err != nil {
		return "", err
	}
	var pkg struct {
		Version *string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("parsing %s: %w", m.path, err)
	}
	if pkg.Version == nil || *pkg.Version == "" {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, m.path)
	}
	return *pkg.Version, nil
}

// SetVersion rewrites the first "version" field holding the current value,
// leaving the rest of the document byte for byte as it was.
func (m *jsonManifest) SetVersion(version string) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	data, err := readManifest(m.path)
	if err != nil {
		return err
	}
	re := regexp.MustCompile(`("version"\s*:\s*")` + regexp.QuoteMeta(current) + `"`)
	loc := re.FindSubmatchIndex(data)
	if loc == nil {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, m.path)
	}
	// loc[3] is the end of the key and opening quote; loc[1]-1 the closing quote.
	out := make([]byte, 0, len(data)+len(version))
	out = append(out, data[:loc[3]]...)
	out = append(out, version...)
	out = append(out, data[loc[1]-1:]...)
	if err := os.WriteFile(m.path, out, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	m.written = []string{m.path}
	return nil
}

// cargoManifest is a Cargo.toml with a [package] table.
type cargoManifest struct {
	path    string
	written []string
}

var tomlVersionLine = regexp.MustCompile(`^(\s*version\s*=\s*")([^"]*)(".*)$`)

func (m *cargoManifest) Path() string    { return m.path }
func (m *cargoManifest) Files() []string { return m.written }

func (m *cargoManifest) Version() (string, error) {
	data, err := readManifest(m.path)
	if err != nil {
		return "", err
	}
	var doc struct {
		Package map[string]any `toml:"package"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("parsing %s: %w", m.path, err)
	}
	v, ok := doc.Package["version"].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s has no [package] version string", ErrVersionNotFound, m.path)
	}
	return v, nil
}

// SetVersion rewrites the version line inside the [package] table only, so
// dependency tables are never touched.
func (m *cargoManifest) SetVersion(version string) error {
	data, err := readManifest(m.path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	section := ""
	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			section = tableName(trimmed)
			continue
		}
		if section != "package" {
			continue
		}
		if parts := tomlVersionLine.FindStringSubmatch(line); parts != nil {
			lines[i] = parts[1] + version + parts[3]
			replaced = true
			break
		}
	}
	if !replaced {
		return fmt.Errorf("%w: %s has no [package] version line", ErrVersionNotFound, m.path)
	}
	if err := os.WriteFile(m.path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}
	m.written = []string{m.path}
	return nil
}

// tableName returns the dotted name of a TOML table header line, without
// brackets, surrounding whitespace or a trailing comment.
func tableName(header string) string {
	header, _, _ = strings.Cut(header, "#")
	header = strings.Trim(strings.TrimSpace(header), "[]")
	parts := strings.Split(header, ".")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ".")
}

// goVersionFile is a Go source file declaring `Version = "x.y.z"`. When the
// new version crosses into v2+ the enclosing module path and its self
// imports are rewritten too.
type goVersionFile struct {
	path    string
	written []string
}

var goVersionDecl = regexp.MustCompile(`Version\s*=\s*"([^"]+)"`)

func (m *goVersionFile) Path() string    { return m.path }
func (m *goVersionFile) Files() []string { return m.written }

// Version reads the declared version. A missing file reads as "dev", which
// bumps from 0.0.0.
func (m *goVersionFile) Version() (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "dev", nil
		}
		return "", fmt.Errorf("failed to read version file: %w", err)
	}
	if matches := goVersionDecl.FindSubmatch(data); len(matches) >= 2 {
		return string(matches[1]), nil
	}
	return "", fmt.Errorf("%w: %s", ErrVersionNotFound, m.path)
}

func (m *goVersionFile) SetVersion(version string) error {
	if err := writeVersionFile(m.path, version); err != nil {
		return err
	}
	m.written = []string{m.path}

	modDir, err := locateGoModDir(filepath.Dir(m.path))
	if err != nil {
		return nil
	}
	oldMod, newMod, err := updateGoMod(modDir, version)
	if err != nil {
		return err
	}
	if oldMod == newMod {
		return nil
	}
	m.written = append(m.written, filepath.Join(modDir, "go.mod"))
	rewritten, err := updateSelfImports(modDir, oldMod, newMod)
	if err != nil {
		return err
	}
	m.written = append(m.written, rewritten...)
	return nil
}

// determinePackageName returns the package clause of path, or of the first
// non-test Go file in its directory. It falls back to "version".
func determinePackageName(path string) string {
	re := regexp.MustCompile(`(?m)^package\s+(\w+)`)
	if data, err := os.ReadFile(path); err == nil {
		if matches := re.FindSubmatch(data); len(matches) >= 2 {
			return string(matches[1])
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		return "version"
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(token.NewFileSet(), filepath.Join(filepath.Dir(path), name), nil, parser.PackageClauseOnly)
		if err == nil {
			return f.Name.Name
		}
	}
	return "version"
}

// writeVersionFile writes (or creates) the version file with the given version.
func writeVersionFile(path, version string) error {
	content := fmt.Sprintf(`package %s

var (
	Version = "%s"
)
`, determinePackageName(path), version)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %q: %v", dir, err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// locateGoModDir walks up from startDir until it finds go.mod.
func locateGoModDir(startDir string) (string, error) {
	d := startDir
	for {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", os.ErrNotExist
}

// updateGoMod sets the major version suffix of the module path to match
// version. It returns the old and new module paths; they are equal when
// nothing had to change and go.mod was left alone.
func updateGoMod(modDir, version string) (string, string, error) {
	modPath := filepath.Join(modDir, "go.mod")
	data, err := os.ReadFile(modPath)
	if err != nil {
		return "", "", fmt.Errorf("reading go.mod: %w", err)
	}
	f, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return "", "", fmt.Errorf("parsing go.mod: %w", err)
	}
	if f.Module == nil {
		return "", "", fmt.Errorf("module directive not found")
	}

	oldPath := f.Module.Mod.Path
	basePath, _, ok := module.SplitPathVersion(oldPath)
	if !ok {
		return "", "", fmt.Errorf("invalid module path %q", oldPath)
	}
	newPath := basePath
	if maj := semver.Major("v" + version); maj != "v0" && maj != "v1" {
		newPath = basePath + "/" + maj
	}
	if newPath == oldPath {
		return oldPath, oldPath, nil
	}

	if err := f.AddModuleStmt(newPath); err != nil {
		return "", "", fmt.Errorf("setting module path: %w", err)
	}
	out, err := f.Format()
	if err != nil {
		return "", "", fmt.Errorf("formatting go.mod: %w", err)
	}
	if err := os.WriteFile(modPath, out, 0644); err != nil {
		return "", "", fmt.Errorf("writing go.mod: %w", err)
	}
	return oldPath, newPath, nil
}

// updateSelfImports rewrites imports of oldMod (and its packages) to newMod in
// every .go file under modDir, skipping vendor. It returns the files changed.
func updateSelfImports(modDir, oldMod, newMod string) ([]string, error) {
	var modified []string
	err := filepath.WalkDir(modDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "vendor" || (path != modDir && strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		fset := token.NewFileSet()
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return err
		}

		changed := false
		for _, imp := range fileAst.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			if p == oldMod || strings.HasPrefix(p, oldMod+"/") {
				imp.Path.Value = strconv.Quote(newMod + strings.TrimPrefix(p, oldMod))
				changed = true
			}
		}
		if !changed {
			return nil
		}

		var buf bytes.Buffer
		if err := format.Node(&buf, fset, fileAst); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return err
		}
		modified = append(modified, path)
		return nil
	})
	return modified, err
}
