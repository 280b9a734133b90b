package quiz

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bezbot/types"
)

func intp(i int) *int { return &i }

func q(text string) types.Question {
	return types.Question{Q: text, O: []string{"да", "нет"}, C: intp(0)}
}

const quizJSON = `{
  "test_names": {"0": "Калибровка", "1": "История и миссия", "2": "Структура"},
  "tests": {
    "0": [{"q": "калибровочный", "o": ["а", "б"], "c": 1}],
    "1": {"current_version": 2, "versions": {
      "1": [{"q": "v1", "o": ["a"]}],
      "2": [{"q": "v2", "o": ["a"]}, {"q": "v2b", "o": ["a"]}],
      "3": [{"q": "v3", "o": ["a"]}]
    }},
    "2": [{"q": "структура", "o": ["x", "y"], "c": 0, "w": [1]}]
  }
}`

const providerJSON = `{
  "test_names": {"0": "Калибровка", "1": "История", "2": "Структура и активы", "3": "Технологии"},
  "tests": {
    "1": [{"q": "plain", "o": ["a"]}],
    "2": [{"q": "new 2", "o": ["a", "b"], "c": 1}],
    "3": [{"q": "new 3", "o": ["a"]}]
  },
  "tests_versions": {
    "1": {"1": [{"q": "p1", "o": ["a"]}], "2": [{"q": "p2", "o": ["a"]}], "3": [{"q": "p3", "o": ["a"]}]}
  }
}`

func setup(t *testing.T, quiz string) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	contentDir := filepath.Join(dir, "content")
	require.NoError(t, os.Mkdir(contentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "quiz_module.json"), []byte(providerJSON), 0o644))

	registry, err := LoadRegistry(contentDir)
	require.NoError(t, err)

	path := filepath.Join(dir, "quiz.json")
	if quiz != "" {
		require.NoError(t, os.WriteFile(path, []byte(quiz), 0o644))
	}
	return NewStore(path, registry, rand.New(rand.NewPCG(1, 2))), path
}

func TestPickNextVersion(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	seen := map[int]bool{}
	for range 200 {
		next := PickNextVersion(2, []int{1, 2, 3}, rng)
		assert.NotEqual(t, 2, next)
		seen[next] = true
	}
	assert.Equal(t, map[int]bool{1: true, 3: true}, seen)

	assert.Equal(t, 1, PickNextVersion(1, []int{1}, rng))
	assert.Equal(t, 5, PickNextVersion(5, nil, rng))
}

func TestPickNextVersionDeterministic(t *testing.T) {
	a := PickNextVersion(1, []int{1, 2, 3, 4}, rand.New(rand.NewPCG(7, 7)))
	b := PickNextVersion(1, []int{1, 2, 3, 4}, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestStoreLoadResolvesCurrentVersion(t *testing.T) {
	s, _ := setup(t, quizJSON)

	names, tests, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "История и миссия", names[1])
	require.Len(t, tests[1], 2)
	assert.Equal(t, "v2", tests[1][0].Q)
	assert.Equal(t, []int{1}, tests[2][0].W)
}

func TestStoreModule(t *testing.T) {
	s, _ := setup(t, quizJSON)

	m, err := s.Module(2)
	require.NoError(t, err)
	assert.Equal(t, "Структура", m.ModuleName)
	assert.Equal(t, 1, m.TotalQuestions)

	_, err = s.Module(99)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleNameFallbacks(t *testing.T) {
	assert.Equal(t, "Своё", ModuleName(map[int]string{4: "Своё"}, 4))
	assert.Equal(t, "Безопасность и экология", ModuleName(nil, 4))
	assert.Equal(t, "Модуль 42", ModuleName(nil, 42))
}

func TestStoreUpdateSwitchesVersion(t *testing.T) {
	s, path := setup(t, quizJSON)

	for range 10 {
		before, err := s.Module(1)
		require.NoError(t, err)
		require.NoError(t, s.Update(1, ""))
		after, err := s.Module(1)
		require.NoError(t, err)
		assert.NotEqual(t, before.Questions[0].Q, after.Questions[0].Q)
	}

	// версии в файле не меняются, меняется только указатель
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	var v versionedModule
	require.NoError(t, json.Unmarshal(doc.Tests["1"], &v))
	assert.Len(t, v.Versions, 3)
	assert.Equal(t, "v1", v.Versions["1"][0].Q)
	assert.Equal(t, "Технологии", doc.TestNames["3"])
}

func TestStoreUpdateInitialisesVersions(t *testing.T) {
	s, _ := setup(t, `{"test_names": {}, "tests": {"1": [{"q": "old", "o": ["a"]}]}}`)

	require.NoError(t, s.Update(1, "quiz_module"))
	m, err := s.Module(1)
	require.NoError(t, err)
	assert.Contains(t, []string{"p1", "p2", "p3"}, m.Questions[0].Q)
}

func TestStoreUpdateCreatesMissingFile(t *testing.T) {
	s, path := setup(t, "")

	require.NoError(t, s.Update(3, ""))
	assert.FileExists(t, path)

	m, err := s.Module(3)
	require.NoError(t, err)
	assert.Equal(t, "new 3", m.Questions[0].Q)
	assert.Equal(t, "Технологии", m.ModuleName)
}

func TestStoreUpdateReplacesWholesale(t *testing.T) {
	s, _ := setup(t, quizJSON)

	require.NoError(t, s.Update(2, ""))
	m, err := s.Module(2)
	require.NoError(t, err)
	assert.Equal(t, []types.Question{{Q: "new 2", O: []string{"a", "b"}, C: intp(1)}}, m.Questions)

	// модуль 0 не трогали
	m0, err := s.Module(0)
	require.NoError(t, err)
	assert.Equal(t, "калибровочный", m0.Questions[0].Q)
}

func TestStoreUpdateErrors(t *testing.T) {
	s, _ := setup(t, quizJSON)

	assert.ErrorIs(t, s.Update(7, ""), ErrModuleNotFound)
	assert.ErrorIs(t, s.Update(2, "no_such_module"), ErrProviderNotFound)
}

func TestStoreLoadMissingFile(t *testing.T) {
	s, _ := setup(t, "")
	_, err := s.Module(1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRegistryMissingDir(t *testing.T) {
	r, err := LoadRegistry(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, r.Names())
	_, err = r.Get("")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("extra", &staticProvider{questions: map[int][]types.Question{5: {q("x")}}})
	p, err := r.Get("extra")
	require.NoError(t, err)
	qs, ok := p.Questions(5)
	assert.True(t, ok)
	assert.Len(t, qs, 1)
	assert.Equal(t, []string{"extra"}, r.Names())
}
