package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"bezbot/types"
)

var ErrModuleNotFound = errors.New("module not found")

// document — формат quiz.json. Запись в tests либо массив вопросов,
// либо {"current_version": n, "versions": {"n": [...]}}.
type document struct {
	TestNames map[string]string          `json:"test_names"`
	Tests     map[string]json.RawMessage `json:"tests"`
}

type versionedModule struct {
	CurrentVersion int                         `json:"current_version"`
	Versions       map[string][]types.Question `json:"versions"`
}

// Store хранит наборы вопросов в JSON-файле. Читатели всегда получают
// текущую версию версионируемого модуля.
type Store struct {
	path     string
	registry *Registry

	mu     sync.RWMutex
	rng    *rand.Rand // под mu
	logger *slog.Logger
}

func NewStore(path string, registry *Registry, rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Store{
		path:     path,
		registry: registry,
		rng:      rng,
		logger:   slog.Default(),
	}
}

// Load returns module names and the active question set of every module.
func (s *Store) Load() (map[int]string, map[int][]types.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.read()
	if err != nil {
		return nil, nil, err
	}
	names, err := parseNames(doc.TestNames)
	if err != nil {
		return nil, nil, err
	}

	tests := make(map[int][]types.Question, len(doc.Tests))
	for k, raw := range doc.Tests {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, nil, fmt.Errorf("tests key %q: %w", k, err)
		}
		questions, err := resolve(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("module %d: %w", id, err)
		}
		tests[id] = questions
	}
	return names, tests, nil
}

func (s *Store) ModuleNames() (map[int]string, error) {
	names, _, err := s.Load()
	return names, err
}

func (s *Store) Module(id int) (types.ModuleResponse, error) {
	names, tests, err := s.Load()
	if err != nil {
		return types.ModuleResponse{}, err
	}
	questions, ok := tests[id]
	if !ok {
		return types.ModuleResponse{}, fmt.Errorf("module %d: %w", id, ErrModuleNotFound)
	}
	if questions == nil {
		questions = []types.Question{}
	}
	return types.ModuleResponse{
		ModuleID:       id,
		ModuleName:     ModuleName(names, id),
		Questions:      questions,
		TotalQuestions: len(questions),
	}, nil
}

// Update подтягивает контент модуля из провайдера providerName.
// Для версионируемого модуля переключает активную версию на другую случайную.
func (s *Store) Update(moduleID int, providerName string) error {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, readErr := s.read()
	if errors.Is(readErr, os.ErrNotExist) {
		doc = &document{}
	} else if readErr != nil {
		return readErr
	}
	if doc.Tests == nil {
		doc.Tests = map[string]json.RawMessage{}
	}

	doc.TestNames = make(map[string]string, len(provider.Names()))
	for id, name := range provider.Names() {
		doc.TestNames[strconv.Itoa(id)] = name
	}

	key := strconv.Itoa(moduleID)
	var entry any
	if moduleID == types.VersionedModuleID {
		entry, err = s.nextVersioned(doc.Tests[key], provider, moduleID)
	} else {
		questions, ok := provider.Questions(moduleID)
		if !ok {
			err = fmt.Errorf("module %d: %w", moduleID, ErrModuleNotFound)
		}
		entry = questions
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	doc.Tests[key] = raw
	return s.write(doc)
}

func (s *Store) nextVersioned(existing json.RawMessage, provider Provider, moduleID int) (any, error) {
	var current versionedModule
	if isObject(existing) {
		if err := json.Unmarshal(existing, &current); err != nil {
			return nil, err
		}
	}

	if len(current.Versions) > 0 {
		ids := make([]int, 0, len(current.Versions))
		for k := range current.Versions {
			n, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("version key %q: %w", k, err)
			}
			ids = append(ids, n)
		}
		sort.Ints(ids)
		next := PickNextVersion(current.CurrentVersion, ids, s.rng)
		s.logger.Info("quiz version switched", "module_id", moduleID, "from", current.CurrentVersion, "to", next)
		current.CurrentVersion = next
		return current, nil
	}

	if versions, ok := provider.Versions(moduleID); ok {
		ids := make([]int, 0, len(versions))
		fresh := versionedModule{Versions: make(map[string][]types.Question, len(versions))}
		for n, q := range versions {
			ids = append(ids, n)
			fresh.Versions[strconv.Itoa(n)] = q
		}
		sort.Ints(ids)
		fresh.CurrentVersion = ids[s.rng.IntN(len(ids))]
		s.logger.Info("quiz versions initialised", "module_id", moduleID, "version", fresh.CurrentVersion)
		return fresh, nil
	}

	questions, ok := provider.Questions(moduleID)
	if !ok {
		return nil, fmt.Errorf("module %d: %w", moduleID, ErrModuleNotFound)
	}
	s.logger.Warn("quiz versions not found, storing plain question set", "module_id", moduleID)
	return questions, nil
}

func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// write заменяет файл атомарно: временный файл в той же директории + rename.
func (s *Store) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func resolve(raw json.RawMessage) ([]types.Question, error) {
	if isObject(raw) {
		var v versionedModule
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		questions, ok := v.Versions[strconv.Itoa(v.CurrentVersion)]
		if !ok {
			return nil, fmt.Errorf("current version %d is missing", v.CurrentVersion)
		}
		return questions, nil
	}
	var questions []types.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func parseNames(raw map[string]string) (map[int]string, error) {
	names := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("test_names key %q: %w", k, err)
		}
		names[id] = v
	}
	return names, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
