package checklist

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// ImageResolver maps question image references to files in a directory.
// Missing images never abort an inspection: Resolve reports them as absent
// and logs a warning once per reference.
type ImageResolver struct {
	dir string

	mu     sync.Mutex
	warned map[string]bool
}

// NewImageResolver returns a resolver rooted at dir. An empty dir disables
// images entirely.
func NewImageResolver(dir string) *ImageResolver {
	return &ImageResolver{
		dir:    dir,
		warned: make(map[string]bool),
	}
}

// Resolve returns the file path of the image reference and whether it can be
// served. References must stay inside the image directory.
func (r *ImageResolver) Resolve(name string) (string, bool) {
	if name == "" || r == nil || r.dir == "" {
		return "", false
	}

	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		r.warnOnce(name, "image reference outside image directory")
		return "", false
	}

	full := filepath.Join(r.dir, rel)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		r.warnOnce(name, "image not found")
		return "", false
	}
	return full, true
}

// Available reports whether the image reference resolves to a file.
func (r *ImageResolver) Available(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

func (r *ImageResolver) warnOnce(name, msg string) {
	r.mu.Lock()
	seen := r.warned[name]
	r.warned[name] = true
	r.mu.Unlock()

	if !seen {
		slog.Warn(msg, "image", name, "dir", r.dir)
	}
}
