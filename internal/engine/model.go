package engine

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	serrors "simlink/internal/errors"
)

// Model is the root handle of a model tree held by the engine.  Only
// its identity and top-level parameters are visible here.
type Model struct {
	Tag        string            `yaml:"tag" json:"tag"`
	Name       string            `yaml:"name" json:"name"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

func (m *Model) String() string { return fmt.Sprintf("Model(%s)", m.Name) }

// modelFile is the on-disk YAML layout of a saved model.
type modelFile struct {
	Name       string            `yaml:"name"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// Store holds the models loaded in one engine instance.
type Store struct {
	mu     sync.Mutex
	models map[string]*Model // by tag
}

// NewStore returns an empty model store.
func NewStore() *Store {
	return &Store{models: make(map[string]*Model)}
}

// Create adds an empty model.  An empty name is replaced by the first
// free "Model N".
func (s *Store) Create(name string) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = s.freeName()
	}
	if s.byName(name) != nil {
		return nil, fmt.Errorf("model name %q already in use", name)
	}
	m := &Model{Tag: newTag(), Name: name, Parameters: map[string]string{}}
	s.models[m.Tag] = m
	return clone(m), nil
}

// Load reads a model file and adds it to the store.
func (s *Store) Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("model file %s has no name", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byName(f.Name) != nil {
		return nil, fmt.Errorf("model name %q already in use", f.Name)
	}
	m := &Model{Tag: newTag(), Name: f.Name, Parameters: f.Parameters}
	if m.Parameters == nil {
		m.Parameters = map[string]string{}
	}
	s.models[m.Tag] = m
	return clone(m), nil
}

// Save writes the model with the given tag to path.
func (s *Store) Save(tag, path string) error {
	if path == "" {
		return fmt.Errorf("save model: no path given")
	}
	s.mu.Lock()
	m, ok := s.models[tag]
	var f modelFile
	if ok {
		f = modelFile{Name: m.Name, Parameters: m.Parameters}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("save %s: %w", tag, serrors.ErrUnknownModel)
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// Remove drops the model with the given tag.
func (s *Store) Remove(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[tag]; !ok {
		return fmt.Errorf("remove %s: %w", tag, serrors.ErrUnknownModel)
	}
	delete(s.models, tag)
	return nil
}

// Names returns the names of all models, sorted.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.models))
	for _, m := range s.models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Clear drops every model.
func (s *Store) Clear() {
	s.mu.Lock()
	s.models = make(map[string]*Model)
	s.mu.Unlock()
}

func (s *Store) byName(name string) *Model {
	for _, m := range s.models {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (s *Store) freeName() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("Model %d", i)
		if s.byName(name) == nil {
			return name
		}
	}
}

func newTag() string { return "model-" + uuid.NewString() }

func clone(m *Model) *Model {
	c := &Model{Tag: m.Tag, Name: m.Name, Parameters: make(map[string]string, len(m.Parameters))}
	for k, v := range m.Parameters {
		c.Parameters[k] = v
	}
	return c
}
