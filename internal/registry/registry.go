package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRegistry []byte

// ErrNotFound is returned by lookups for ids that are not registered.
var ErrNotFound = errors.New("not found")

// RoleManager marks the orchestrating worker that runs dispatches.
const RoleManager = "manager"

// InfraTypes lists the accepted infrastructure kinds.
var InfraTypes = map[string]string{
	"d1":    "DB",
	"kv":    "KV",
	"r2":    "R2",
	"queue": "Q",
	"ai":    "AI",
}

// Point is a position in the 1280x720 world.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Worker is the static description of a cron worker.
type Worker struct {
	ID              string              `yaml:"id" json:"id"`
	Name            string              `yaml:"name" json:"name"`
	Character       string              `yaml:"character" json:"character"`
	Project         string              `yaml:"project" json:"project"`
	Cron            string              `yaml:"cron" json:"cron,omitempty"`
	CronLabel       string              `yaml:"cron_label" json:"cron_label,omitempty"`
	Home            Point               `yaml:"home" json:"home"`
	Personality     string              `yaml:"personality" json:"personality,omitempty"`
	Activities      []string            `yaml:"activities" json:"activities,omitempty"`
	ConnectedInfra  []string            `yaml:"connected_infra" json:"connected_infra"`
	ExternalAPIs    []string            `yaml:"external_apis" json:"external_apis,omitempty"`
	StatusKey       string              `yaml:"status_key" json:"status_key,omitempty"`
	AnalyticsScript string              `yaml:"analytics_script" json:"analytics_script,omitempty"`
	Color           string              `yaml:"color" json:"color"`
	Role            string              `yaml:"role" json:"role,omitempty"`
	Frames          map[string][]string `yaml:"frames" json:"-"`
}

// IsManager reports whether w orchestrates dispatches.
func (w *Worker) IsManager() bool { return w.Role == RoleManager }

// Infra is the static description of an infrastructure resource.
type Infra struct {
	ID       string `yaml:"id" json:"id"`
	Type     string `yaml:"type" json:"type"`
	Name     string `yaml:"name" json:"name"`
	Project  string `yaml:"project" json:"project"`
	Position Point  `yaml:"position" json:"position"`
	Size     string `yaml:"size" json:"size,omitempty"`
	Detail   string `yaml:"detail" json:"detail,omitempty"`
	Color    string `yaml:"color" json:"color"`
}

// Icon returns the short label drawn on the prop.
func (i *Infra) Icon() string { return InfraTypes[i.Type] }

// Line is one line of a conversation. Speaker 0 is the first participant.
type Line struct {
	Speaker int    `yaml:"speaker" json:"speaker"`
	Text    string `yaml:"text" json:"text"`
}

// Script is an ordered conversation. Match, when set, names the unordered
// pair of workers the script is written for.
type Script struct {
	Match []string `yaml:"match,omitempty" json:"match,omitempty"`
	Lines []Line   `yaml:"lines" json:"lines"`
}

// Matches reports whether the script is keyed to the pair a, b.
func (s *Script) Matches(a, b string) bool {
	if len(s.Match) != 2 {
		return false
	}
	return (s.Match[0] == a && s.Match[1] == b) || (s.Match[0] == b && s.Match[1] == a)
}

// Scripts groups the conversation pools.
type Scripts struct {
	Generic       []Script          `yaml:"generic" json:"generic"`
	Pairs         []Script          `yaml:"pairs" json:"pairs"`
	ManagerCasual []Script          `yaml:"manager_casual" json:"manager_casual"`
	Trigger       map[string]Script `yaml:"trigger" json:"trigger"`
}

// Registry is the read-only description of the office: who works there,
// what infrastructure they touch and what they say to each other.
type Registry struct {
	Workers []Worker `yaml:"workers" json:"workers"`
	Infra   []Infra  `yaml:"infra" json:"infra"`
	Scripts Scripts  `yaml:"scripts" json:"-"`
}

// Default returns the built-in registry.
func Default() (*Registry, error) {
	return Parse(defaultRegistry)
}

// Load reads a registry file. An empty path loads the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes and validates a YAML registry.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks ids, references and script shape.
func (r *Registry) Validate() error {
	if len(r.Workers) == 0 {
		return errors.New("registry has no workers")
	}
	infra := make(map[string]bool, len(r.Infra))
	for _, i := range r.Infra {
		if i.ID == "" {
			return errors.New("infra id is required")
		}
		if infra[i.ID] {
			return fmt.Errorf("duplicate infra id %q", i.ID)
		}
		if _, ok := InfraTypes[i.Type]; !ok {
			return fmt.Errorf("infra %q: unknown type %q", i.ID, i.Type)
		}
		infra[i.ID] = true
	}

	workers := make(map[string]bool, len(r.Workers))
	keys := make(map[string]string)
	managers := 0
	for _, w := range r.Workers {
		if w.ID == "" {
			return errors.New("worker id is required")
		}
		if workers[w.ID] {
			return fmt.Errorf("duplicate worker id %q", w.ID)
		}
		workers[w.ID] = true
		if w.StatusKey != "" {
			if other, ok := keys[w.StatusKey]; ok {
				return fmt.Errorf("workers %q and %q share status key %q", other, w.ID, w.StatusKey)
			}
			keys[w.StatusKey] = w.ID
		}
		for _, id := range w.ConnectedInfra {
			if !infra[id] {
				return fmt.Errorf("worker %q: unknown infra %q", w.ID, id)
			}
		}
		switch w.Role {
		case "":
		case RoleManager:
			managers++
		default:
			return fmt.Errorf("worker %q: unknown role %q", w.ID, w.Role)
		}
	}
	if managers > 1 {
		return fmt.Errorf("registry has %d managers, want at most 1", managers)
	}

	if len(r.Scripts.Generic) == 0 {
		return errors.New("registry needs at least one generic script")
	}
	check := func(pool string, s Script) error {
		if len(s.Lines) == 0 {
			return fmt.Errorf("%s script has no lines", pool)
		}
		for _, l := range s.Lines {
			if l.Speaker != 0 && l.Speaker != 1 {
				return fmt.Errorf("%s script: speaker %d out of range", pool, l.Speaker)
			}
		}
		return nil
	}
	for _, s := range r.Scripts.Generic {
		if err := check("generic", s); err != nil {
			return err
		}
	}
	for _, s := range r.Scripts.ManagerCasual {
		if err := check("manager_casual", s); err != nil {
			return err
		}
	}
	for _, s := range r.Scripts.Pairs {
		if err := check("pair", s); err != nil {
			return err
		}
		if len(s.Match) != 2 {
			return errors.New("pair script must match exactly two workers")
		}
		for _, id := range s.Match {
			if !workers[id] {
				return fmt.Errorf("pair script: unknown worker %q", id)
			}
		}
	}
	for id, s := range r.Scripts.Trigger {
		if !workers[id] {
			return fmt.Errorf("trigger script: unknown worker %q", id)
		}
		if err := check("trigger", s); err != nil {
			return err
		}
	}
	return nil
}

// Worker looks up a worker by id.
func (r *Registry) Worker(id string) (*Worker, error) {
	for i := range r.Workers {
		if r.Workers[i].ID == id {
			return &r.Workers[i], nil
		}
	}
	return nil, fmt.Errorf("worker %q: %w", id, ErrNotFound)
}

// InfraByID looks up an infrastructure resource by id.
func (r *Registry) InfraByID(id string) (*Infra, error) {
	for i := range r.Infra {
		if r.Infra[i].ID == id {
			return &r.Infra[i], nil
		}
	}
	return nil, fmt.Errorf("infra %q: %w", id, ErrNotFound)
}

// Manager returns the manager worker, or nil when none is registered.
func (r *Registry) Manager() *Worker {
	for i := range r.Workers {
		if r.Workers[i].IsManager() {
			return &r.Workers[i]
		}
	}
	return nil
}

// Dispatchable returns the non-manager workers in registry order. Keyboard
// shortcuts index into this list.
func (r *Registry) Dispatchable() []Worker {
	out := make([]Worker, 0, len(r.Workers))
	for _, w := range r.Workers {
		if !w.IsManager() {
			out = append(out, w)
		}
	}
	return out
}

// ConnectedWorkers returns the ids of workers that use an infra resource.
func (r *Registry) ConnectedWorkers(infraID string) []string {
	var out []string
	for _, w := range r.Workers {
		for _, id := range w.ConnectedInfra {
			if id == infraID {
				out = append(out, w.ID)
				break
			}
		}
	}
	return out
}

// InfraForProject returns the infrastructure belonging to a project.
func (r *Registry) InfraForProject(project string) []Infra {
	var out []Infra
	for _, i := range r.Infra {
		if i.Project == project {
			out = append(out, i)
		}
	}
	return out
}
