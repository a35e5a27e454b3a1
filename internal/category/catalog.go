// Package category holds the two-level scoring category tree, the per-role
// visibility rules and the cap configuration read by the aggregation engine.
//
// A Catalog is built once at startup from a Config and never mutated; every
// accessor returns copies so callers cannot reach the shared tree.
package category

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Origin tags which side administers a category.
type Origin string

const (
	OriginTeacher Origin = "teacher"
	OriginStudent Origin = "student"
)

// Leaf is the finest-grained category an application or record targets.
type Leaf struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxScore    int    `json:"max_score"`
	// SubCap clamps the summed scores of this leaf before they reach the main total.
	SubCap *int `json:"sub_cap,omitempty"`
}

// Main is a top-level bucket owning an ordered set of leaves.
type Main struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Cap bounds the main category's final score. 0 marks a deduction-only bucket.
	Cap    int    `json:"max_score"`
	Leaves []Leaf `json:"children"`
}

// Config is the static category configuration.
type Config struct {
	Mains []Main `json:"mains"`
	// Visibility maps role -> main name -> permitted leaf names.
	// A nil leaf list permits every leaf of that main.
	Visibility map[string]map[string][]string `json:"visibility"`
	// FullAccessRoles see the whole tree.
	FullAccessRoles []string `json:"full_access_roles"`
	// TeacherRole names the role whose allow-list defines teacher-managed categories.
	TeacherRole string `json:"teacher_role"`
	// OverrideMain uses best-single-record aggregation.
	OverrideMain string `json:"override_main"`
	// DeductionMain is subtracted in the 35-point view.
	DeductionMain string `json:"deduction_main"`
	// DefaultCap applies to categories missing from the tree.
	DefaultCap int `json:"default_cap"`
}

// Catalog answers category questions for workflows and aggregation.
type Catalog struct {
	cfg    Config
	byMain map[string]int // main name -> index
	byID   map[int]location
}

type location struct {
	main int
	leaf int // -1 when the id names a main category
}

// New validates cfg and builds a Catalog.
func New(cfg Config) (*Catalog, error) {
	c := &Catalog{
		cfg:    cloneConfig(cfg),
		byMain: map[string]int{},
		byID:   map[int]location{},
	}
	if c.cfg.TeacherRole == "" {
		c.cfg.TeacherRole = "teacher"
	}
	if c.cfg.DefaultCap == 0 {
		c.cfg.DefaultCap = 100
	}
	for mi, m := range c.cfg.Mains {
		if m.Name == "" {
			return nil, fmt.Errorf("category: main #%d has no name", mi)
		}
		if _, dup := c.byMain[m.Name]; dup {
			return nil, fmt.Errorf("category: duplicate main %q", m.Name)
		}
		c.byMain[m.Name] = mi
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("category: duplicate id %d", m.ID)
		}
		c.byID[m.ID] = location{main: mi, leaf: -1}
		seen := map[string]bool{}
		for li, l := range m.Leaves {
			if seen[l.Name] {
				return nil, fmt.Errorf("category: duplicate leaf %q under %q", l.Name, m.Name)
			}
			seen[l.Name] = true
			if _, dup := c.byID[l.ID]; dup {
				return nil, fmt.Errorf("category: duplicate id %d", l.ID)
			}
			c.byID[l.ID] = location{main: mi, leaf: li}
		}
	}
	for _, name := range []string{c.cfg.OverrideMain, c.cfg.DeductionMain} {
		if name == "" {
			continue
		}
		if _, ok := c.byMain[name]; !ok {
			return nil, fmt.Errorf("category: unknown policy main %q", name)
		}
	}
	for role, mains := range c.cfg.Visibility {
		for mainName, leaves := range mains {
			mi, ok := c.byMain[mainName]
			if !ok {
				return nil, fmt.Errorf("category: role %q references unknown main %q", role, mainName)
			}
			for _, ln := range leaves {
				if !slices.ContainsFunc(c.cfg.Mains[mi].Leaves, func(l Leaf) bool { return l.Name == ln }) {
					return nil, fmt.Errorf("category: role %q references unknown leaf %q under %q", role, ln, mainName)
				}
			}
		}
	}
	return c, nil
}

// LoadFile reads a JSON Config.
func LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("category: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Mains returns the full tree in configuration order.
func (c *Catalog) Mains() []Main {
	return cloneMains(c.cfg.Mains)
}

// VisibleCategories filters the tree to what role may see.
func (c *Catalog) VisibleCategories(role string) []Main {
	if slices.Contains(c.cfg.FullAccessRoles, role) {
		return c.Mains()
	}
	rules := c.cfg.Visibility[role]
	out := []Main{}
	for _, m := range c.cfg.Mains {
		allowed, ok := rules[m.Name]
		if !ok {
			continue
		}
		vm := m
		vm.Leaves = []Leaf{}
		for _, l := range m.Leaves {
			if allowed == nil || slices.Contains(allowed, l.Name) {
				vm.Leaves = append(vm.Leaves, cloneLeaf(l))
			}
		}
		out = append(out, vm)
	}
	return out
}

// IsVisible reports whether role may target the given leaf.
func (c *Catalog) IsVisible(role string, leafID int) bool {
	loc, ok := c.byID[leafID]
	if !ok || loc.leaf < 0 {
		return false
	}
	if slices.Contains(c.cfg.FullAccessRoles, role) {
		return true
	}
	m := c.cfg.Mains[loc.main]
	allowed, ok := c.cfg.Visibility[role][m.Name]
	if !ok {
		return false
	}
	return allowed == nil || slices.Contains(allowed, m.Leaves[loc.leaf].Name)
}

// IsTeacherManaged reports whether leafName under mainName is teacher-administered.
// With an empty leafName it reports whether any leaf of the main is, so a
// main mixing teacher and student leaves counts as teacher-managed.
func (c *Catalog) IsTeacherManaged(mainName, leafName string) bool {
	mi, ok := c.byMain[mainName]
	if !ok {
		return false
	}
	allowed, ok := c.cfg.Visibility[c.cfg.TeacherRole][mainName]
	if !ok {
		return false
	}
	if leafName == "" {
		return allowed == nil || len(allowed) > 0
	}
	if allowed == nil {
		return slices.ContainsFunc(c.cfg.Mains[mi].Leaves, func(l Leaf) bool { return l.Name == leafName })
	}
	return slices.Contains(allowed, leafName)
}

// Location resolves a category id to its main and leaf. When id names a main
// category the returned leaf mirrors the main itself.
func (c *Catalog) Location(id int) (Main, Leaf, bool) {
	loc, ok := c.byID[id]
	if !ok {
		return Main{}, Leaf{}, false
	}
	m := c.cfg.Mains[loc.main]
	if loc.leaf < 0 {
		return cloneMain(m), Leaf{ID: m.ID, Name: m.Name, MaxScore: m.Cap}, true
	}
	return cloneMain(m), cloneLeaf(m.Leaves[loc.leaf]), true
}

// IsLeaf reports whether id names a leaf category.
func (c *Catalog) IsLeaf(id int) bool {
	loc, ok := c.byID[id]
	return ok && loc.leaf >= 0
}

func (c *Catalog) OverrideMain() string  { return c.cfg.OverrideMain }
func (c *Catalog) DeductionMain() string { return c.cfg.DeductionMain }
func (c *Catalog) DefaultCap() int       { return c.cfg.DefaultCap }

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Mains = cloneMains(cfg.Mains)
	out.FullAccessRoles = slices.Clone(cfg.FullAccessRoles)
	out.Visibility = make(map[string]map[string][]string, len(cfg.Visibility))
	for role, mains := range cfg.Visibility {
		inner := make(map[string][]string, len(mains))
		for k, v := range mains {
			inner[k] = slices.Clone(v)
		}
		out.Visibility[role] = inner
	}
	return out
}

func cloneMains(ms []Main) []Main {
	out := make([]Main, len(ms))
	for i, m := range ms {
		out[i] = cloneMain(m)
	}
	return out
}

func cloneMain(m Main) Main {
	leaves := make([]Leaf, len(m.Leaves))
	for i, l := range m.Leaves {
		leaves[i] = cloneLeaf(l)
	}
	m.Leaves = leaves
	return m
}

func cloneLeaf(l Leaf) Leaf {
	if l.SubCap != nil {
		v := *l.SubCap
		l.SubCap = &v
	}
	return l
}
