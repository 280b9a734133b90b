package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"bezbot/types"
)

const DefaultProvider = "quiz_module"

var ErrProviderNotFound = errors.New("quiz content provider not found")

// Provider отдаёт авторский контент тестов: названия, вопросы модулей
// и, для версионируемых модулей, набор версий.
type Provider interface {
	Names() map[int]string
	Questions(moduleID int) ([]types.Question, bool)
	Versions(moduleID int) (map[int][]types.Question, bool)
}

// providerFile — формат JSON-файла с контентом.
type providerFile struct {
	TestNames     map[string]string                       `json:"test_names"`
	Tests         map[string][]types.Question             `json:"tests"`
	TestsVersions map[string]map[string][]types.Question `json:"tests_versions,omitempty"`
}

type staticProvider struct {
	names     map[int]string
	questions map[int][]types.Question
	versions  map[int]map[int][]types.Question
}

func (p *staticProvider) Names() map[int]string { return p.names }

func (p *staticProvider) Questions(id int) ([]types.Question, bool) {
	q, ok := p.questions[id]
	return q, ok
}

func (p *staticProvider) Versions(id int) (map[int][]types.Question, bool) {
	v, ok := p.versions[id]
	return v, ok && len(v) > 0
}

func LoadProvider(path string) (Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f providerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	p := &staticProvider{
		names:     make(map[int]string, len(f.TestNames)),
		questions: make(map[int][]types.Question, len(f.Tests)),
		versions:  make(map[int]map[int][]types.Question, len(f.TestsVersions)),
	}
	for k, v := range f.TestNames {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("test_names key %q: %w", k, err)
		}
		p.names[id] = v
	}
	for k, v := range f.Tests {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("tests key %q: %w", k, err)
		}
		p.questions[id] = v
	}
	for k, versions := range f.TestsVersions {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("tests_versions key %q: %w", k, err)
		}
		byVersion := make(map[int][]types.Question, len(versions))
		for vk, q := range versions {
			n, err := strconv.Atoi(vk)
			if err != nil {
				return nil, fmt.Errorf("tests_versions[%s] key %q: %w", k, vk, err)
			}
			byVersion[n] = q
		}
		p.versions[id] = byVersion
	}
	return p, nil
}

// Registry сопоставляет имя контент-модуля с загруженным провайдером.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = DefaultProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadRegistry registers every dir/*.json under its file stem.
// A missing directory yields an empty registry.
func LoadRegistry(dir string) (*Registry, error) {
	r := NewRegistry()
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		p, err := LoadProvider(path)
		if err != nil {
			return nil, err
		}
		r.Register(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), p)
	}
	if len(paths) == 0 {
		slog.Warn("no quiz content providers found", "dir", dir)
	}
	return r, nil
}
