package source

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
)

// extractor turns a parsed syntax tree into type facts.
type extractor interface {
	extract(root *sitter.Node, source []byte) ([]*typeFact, string, error)
}

type languageSpec struct {
	grammar   *sitter.Language
	extractor extractor
}

// Provider opens source files directly. One file is one module; its
// dependencies are the other source files of the search set.
type Provider struct {
	languages map[string]languageSpec // extension -> grammar + extractor
}

func New() *Provider {
	return &Provider{
		languages: map[string]languageSpec{
			".java": {
				grammar:   sitter.NewLanguage(tree_sitter_java.Language()),
				extractor: &javaExtractor{},
			},
			".go": {
				grammar:   sitter.NewLanguage(tree_sitter_go.Language()),
				extractor: &goExtractor{},
			},
		},
	}
}

func (p *Provider) ProviderName() string { return "source" }

func (p *Provider) CanOpen(path string) bool {
	_, ok := p.languages[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (p *Provider) Open(path string, searchPaths []string) (provider.ModuleHandle, error) {
	types, err := p.parse(path)
	if err != nil {
		return nil, err
	}

	h := &handle{
		provider: p,
		path:     path,
		name:     moduleName(path),
		types:    types,
		parsed:   make(map[string][]*typeFact),
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, sp := range searchPaths {
		if strings.ToLower(filepath.Ext(sp)) != ext {
			continue
		}
		h.depPaths = append(h.depPaths, sp)
	}
	return h, nil
}

func (p *Provider) parse(path string) ([]*typeFact, error) {
	spec, ok := p.languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		err := cerrors.Newf(cerrors.CodeNotSupported, "unsupported source language: %s", filepath.Ext(path))
		return nil, cerrors.AddContext(err, cerrors.CtxPath, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeLoadError, "cannot read source file")
		return nil, cerrors.AddContext(wrapped, cerrors.CtxPath, path)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		err := cerrors.New(cerrors.CodeLoadError, "parse failed")
		return nil, cerrors.AddContext(err, cerrors.CtxPath, path)
	}
	defer tree.Close()

	types, _, err := spec.extractor.extract(tree.RootNode(), content)
	if err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeLoadError, "extraction failed")
		return nil, cerrors.AddContext(wrapped, cerrors.CtxPath, path)
	}
	return types, nil
}

func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type handle struct {
	provider *Provider
	path     string
	name     string
	types    []*typeFact

	depPaths []string

	mu     sync.Mutex
	parsed map[string][]*typeFact // dependency path -> extracted facts, nil on failure
}

func (h *handle) Name() string { return h.name }
func (h *handle) Path() string { return h.path }

func (h *handle) ExportedTypes() ([]provider.TypeHandle, error) {
	out := make([]provider.TypeHandle, len(h.types))
	for i, t := range h.types {
		out[i] = t
	}
	return out, nil
}

func (h *handle) Resolve(ref provider.TypeRef) (provider.TypeHandle, error) {
	if ref.Module == "" || strings.EqualFold(ref.Module, h.name) {
		if t, ok := findFact(h.types, ref.FullName); ok {
			return t, nil
		}
		if ref.Module != "" {
			return nil, h.unresolvable(ref)
		}
		// chase unqualified references through the search set, closest
		// module first
		for i := len(h.depPaths) - 1; i >= 0; i-- {
			if t, ok := findFact(h.dependency(h.depPaths[i]), ref.FullName); ok {
				return t, nil
			}
		}
		return nil, h.unresolvable(ref)
	}

	for i := len(h.depPaths) - 1; i >= 0; i-- {
		if !strings.EqualFold(moduleName(h.depPaths[i]), ref.Module) {
			continue
		}
		if t, ok := findFact(h.dependency(h.depPaths[i]), ref.FullName); ok {
			return t, nil
		}
	}
	return nil, h.unresolvable(ref)
}

func (h *handle) dependency(path string) []*typeFact {
	h.mu.Lock()
	defer h.mu.Unlock()
	if types, ok := h.parsed[path]; ok {
		return types
	}
	types, err := h.provider.parse(path)
	if err != nil {
		types = nil
	}
	h.parsed[path] = types
	return types
}

func (h *handle) unresolvable(ref provider.TypeRef) error {
	err := cerrors.Newf(cerrors.CodeLoadError, "type %q not resolvable from module %s", ref.FullName, h.name)
	return cerrors.AddContext(err, cerrors.CtxType, ref.FullName)
}

func (h *handle) Close() error { return nil }

func findFact(types []*typeFact, fullName string) (*typeFact, bool) {
	for _, t := range types {
		if t.fullName == fullName {
			return t, true
		}
	}
	// second pass: match unqualified references against simple names
	for _, t := range types {
		if strings.EqualFold(simpleName(t.fullName), fullName) {
			return t, true
		}
	}
	return nil, false
}

func simpleName(fullName string) string {
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}
