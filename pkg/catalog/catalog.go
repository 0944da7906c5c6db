// Package catalog provides thread-safe in-memory storage for practice
// problems, grouped by branch, each branch carrying its own constants.
package catalog

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/formula-verifier/pkg/formula"
	"github.com/lemonberrylabs/formula-verifier/pkg/verify"
)

var (
	ErrNotFound      = errors.New("problem not found")
	ErrAlreadyExists = errors.New("problem already exists")
)

// Difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Answer is a problem's expected answer.
type Answer struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Problem is a stored practice problem.
type Problem struct {
	ID         string             `json:"id" yaml:"id"`
	Branch     string             `json:"branch" yaml:"branch"`
	Difficulty string             `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Title      string             `json:"title,omitempty" yaml:"title,omitempty"`
	Statement  string             `json:"statement,omitempty" yaml:"statement,omitempty"`
	Formula    string             `json:"formula" yaml:"formula"`
	Target     string             `json:"target,omitempty" yaml:"target,omitempty"`
	Given      map[string]float64 `json:"given,omitempty" yaml:"given,omitempty"`
	Answer     *Answer            `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Grading returns the view of p the solution grader needs.
func (p *Problem) Grading(constants formula.Env) verify.Problem {
	out := verify.Problem{
		Given:     formula.Env(p.Given),
		Constants: constants,
	}
	if p.Answer != nil {
		v := p.Answer.Value
		out.Expected = &v
	}
	return out
}

// Filter narrows List. Zero fields match everything; Limit <= 0 means no
// limit.
type Filter struct {
	Branch     string
	Difficulty string
	Limit      int
	Offset     int
}

// BranchFile is the on-disk layout of one branch.
type BranchFile struct {
	Branch    string             `json:"branch" yaml:"branch"`
	Constants map[string]float64 `json:"constants" yaml:"constants"`
	Problems  []Problem          `json:"problems" yaml:"problems"`
}

// Catalog is a thread-safe in-memory problem store.
type Catalog struct {
	mu        sync.RWMutex
	problems  map[string]*Problem
	constants map[string]formula.Env
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		problems:  make(map[string]*Problem),
		constants: make(map[string]formula.Env),
	}
}

var validProblemID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Add stores a problem under branch. The problem's formula must parse.
func (c *Catalog) Add(branch string, p Problem) error {
	if !validProblemID.MatchString(p.ID) || len(p.ID) > 128 {
		return fmt.Errorf("invalid problem id %q", p.ID)
	}
	if _, err := formula.Parse(p.Formula); err != nil {
		return fmt.Errorf("problem %q: %w", p.ID, err)
	}
	p.Branch = branch

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.problems[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
	}
	c.problems[p.ID] = &p
	return nil
}

// Get retrieves a problem by id. The returned value is a copy.
func (c *Catalog) Get(id string) (*Problem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.problems[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// List returns the problems matching f, ordered by id.
func (c *Catalog) List(f Filter) []*Problem {
	c.mu.RLock()
	var result []*Problem
	for _, p := range c.problems {
		if f.Branch != "" && p.Branch != f.Branch {
			continue
		}
		if f.Difficulty != "" && p.Difficulty != f.Difficulty {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	c.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result
}

// SetConstants replaces the constants of a branch.
func (c *Catalog) SetConstants(branch string, constants map[string]float64) {
	env := make(formula.Env, len(constants))
	for k, v := range constants {
		env[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.constants[branch] = env
}

// Constants returns a copy of a branch's constants. Unknown branches have
// none.
func (c *Catalog) Constants(branch string) formula.Env {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := c.constants[branch]
	env := make(formula.Env, len(src))
	for k, v := range src {
		env[k] = v
	}
	return env
}

// Branches returns the names of all branches that have problems or
// constants, sorted.
func (c *Catalog) Branches() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for b := range c.constants {
		seen[b] = true
	}
	for _, p := range c.problems {
		seen[p.Branch] = true
	}
	names := make([]string, 0, len(seen))
	for b := range seen {
		names = append(names, b)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored problems.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.problems)
}

// LoadFile loads one branch file. JSON is read by the same decoder, being
// a subset of YAML. When the file names no branch, the file name (sans
// extension) is used.
func (c *Catalog) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var bf BranchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if bf.Branch == "" {
		bf.Branch = strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}

	c.SetConstants(bf.Branch, bf.Constants)

	loaded := 0
	for _, p := range bf.Problems {
		if err := c.Add(bf.Branch, p); err != nil {
			log.Printf("Warning: skipping problem in %s: %v", filepath.Base(path), err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// LoadDir loads all .yaml, .yml and .json branch files from dir. Files
// that cannot be read or parsed are skipped with a warning.
func (c *Catalog) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading problems directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		n, err := c.LoadFile(filepath.Join(dir, name))
		if err != nil {
			log.Printf("Warning: could not load %q: %v", name, err)
			continue
		}
		total += n
		log.Printf("Loaded %d problem(s) from %s", n, name)
	}

	log.Printf("Loaded %d problem(s) from %s", total, dir)
	return total, nil
}
