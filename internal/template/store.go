package template

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store loads templates from a filesystem. The builtin baseline set ships
// embedded; `--templates <dir>` swaps in a user-provided directory.
type Store struct {
	fsys fs.FS
	root string
}

// NewStore creates a store over an arbitrary filesystem rooted at root
// ("." for the whole fs).
func NewStore(fsys fs.FS, root string) *Store {
	if root == "" {
		root = "."
	}
	return &Store{fsys: fsys, root: root}
}

// NewDirStore creates a store over a directory on disk.
func NewDirStore(dir string) *Store {
	return NewStore(os.DirFS(dir), ".")
}

// Load reads, parses and validates one named template (name without
// extension). Validation failures surface as ValidationErrors.
func (s *Store) Load(name string) (*Template, error) {
	path := name + ".yaml"
	if s.root != "." {
		path = s.root + "/" + path
	}
	data, err := fs.ReadFile(s.fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	return Parse(data)
}

// Names lists the template names under the store root, sorted by file name
// so plan order is reproducible.
func (s *Store) Names() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, s.root)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll reads every template under the store root in name order, failing
// on the first unreadable or invalid document.
func (s *Store) LoadAll() ([]*Template, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}

	out := make([]*Template, 0, len(names))
	for _, name := range names {
		t, err := s.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Parse parses raw YAML into a Template and validates it.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
