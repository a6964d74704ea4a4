package checklist

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oszuidwest/cranecheck/internal/util"
)

// DefaultID is the checklist used when none is configured.
const DefaultID = "crane-basic"

// ErrNotFound is returned when a checklist ID is not in the catalog.
var ErrNotFound = errors.New("checklist not found")

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Parse decodes a single YAML checklist definition and validates it.
// Unknown keys are rejected so typos in definition files surface early.
func Parse(data []byte) (*Checklist, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cl Checklist
	if err := dec.Decode(&cl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, util.WrapError("parse checklist", err)
	}
	cl.normalize()

	if err := cl.Validate(); err != nil {
		return nil, err
	}
	return &cl, nil
}

// LoadFile reads and parses a checklist definition from disk.
func LoadFile(filePath string) (*Checklist, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, util.WrapError("read checklist", err)
	}
	cl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return cl, nil
}

// normalize trims the literal values the walk compares against.
func (c *Checklist) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Title = strings.TrimSpace(c.Title)
	c.Responses.Pass = strings.TrimSpace(c.Responses.Pass)
	c.Responses.Fail = strings.TrimSpace(c.Responses.Fail)
	for i := range c.Identity {
		c.Identity[i].Key = strings.TrimSpace(c.Identity[i].Key)
	}
	if c.Title == "" {
		c.Title = c.ID
	}
}

// Catalog holds the known checklist variants in load order. It is safe for
// concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]*Checklist
	order []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]*Checklist)}
}

// Builtin returns a catalog holding the variants compiled into the binary.
func Builtin() (*Catalog, error) {
	c := NewCatalog()
	if err := c.LoadFS(builtinFS, "builtin"); err != nil {
		return nil, err
	}
	return c, nil
}

// Add validates cl and stores it. A checklist with an existing ID replaces
// the previous definition but keeps its position.
func (c *Catalog) Add(cl *Checklist) error {
	if err := cl.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[cl.ID]; !exists {
		c.order = append(c.order, cl.ID)
	}
	c.byID[cl.ID] = cl
	return nil
}

// LoadFS adds every *.yaml and *.yml file in dir of fsys, in name order.
func (c *Catalog) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return util.WrapError("list checklists", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isDefinitionFile(entry.Name()) {
			continue
		}
		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return util.WrapError("read checklist", err)
		}
		cl, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := c.Add(cl); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// LoadDir adds the definitions found in a directory on disk.
func (c *Catalog) LoadDir(dir string) error {
	return c.LoadFS(os.DirFS(dir), ".")
}

// Get returns the checklist with the given ID.
func (c *Catalog) Get(id string) (*Checklist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cl, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cl, nil
}

// All returns the checklists in load order.
func (c *Catalog) All() []*Checklist {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Checklist, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted checklist IDs.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := slices.Clone(c.order)
	slices.Sort(ids)
	return ids
}

func isDefinitionFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
