package fixer

import (
	"fmt"
	"sort"

	"ImportFixer/internal/config"
)

// Builder creates a fixer for a single run, so run-scoped state such as
// asset memos never leaks between runs.
type Builder func(env Env, run config.RunConfig) (Fixer, error)

// Info describes a registered fixer.
type Info struct {
	Name        string
	Description string
	PageSize    int
}

type registration struct {
	info  Info
	build Builder
}

// Registry keeps a mapping from fixer names to their builders.
type Registry struct {
	fixers map[string]registration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fixers: map[string]registration{}}
}

// Default returns a registry with every built-in fixer.
func Default() *Registry {
	r := NewRegistry()
	r.Register(Info{
		Name:        InternalLinksName,
		Description: "Point links on the old domain at the current permalink of the imported document",
		PageSize:    linkPageSize,
	}, NewInternalLinks)
	r.Register(Info{
		Name:        ImgSrcFromLinksName,
		Description: "Fill empty image sources from the image file their anchor links to",
		PageSize:    linkPageSize,
	}, NewImgSrcFromLinks)
	r.Register(Info{
		Name:        ImageHrefsName,
		Description: "Point anchors around images at the image's asset",
		PageSize:    imagePageSize,
	}, NewImageHrefs)
	r.Register(Info{
		Name:        MissingImagesName,
		Description: "Repair images whose accented file name was stored transliterated",
		PageSize:    imagePageSize,
	}, NewMissingImages)
	return r
}

// Register adds or replaces a fixer builder.
func (r *Registry) Register(info Info, build Builder) {
	if r.fixers == nil {
		r.fixers = map[string]registration{}
	}
	r.fixers[info.Name] = registration{info: info, build: build}
}

// Build returns a fresh fixer by name or an error if it is absent.
func (r *Registry) Build(name string, env Env, run config.RunConfig) (Fixer, error) {
	reg, ok := r.fixers[name]
	if !ok {
		return nil, fmt.Errorf("%w: fixer %s is not registered", config.ErrInvalidRunConfig, name)
	}
	return reg.build(env, run)
}

// List returns the registered fixers ordered by name.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.fixers))
	for _, reg := range r.fixers {
		infos = append(infos, reg.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
