package clinical

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Environment is a care setting with its plausible patients.
type Environment struct {
	Name        string   `yaml:"name"`
	MinAge      int      `yaml:"min_age"`
	MaxAge      int      `yaml:"max_age"`
	Pathologies []string `yaml:"pathologies"`
}

// HasPathology reports whether p belongs to the environment's list.
func (e Environment) HasPathology(p string) bool {
	return slices.Contains(e.Pathologies, p)
}

// AgeInRange reports whether age is within [MinAge, MaxAge].
func (e Environment) AgeInRange(age int) bool {
	return age >= e.MinAge && age <= e.MaxAge
}

func (e Environment) clone() Environment {
	e.Pathologies = slices.Clone(e.Pathologies)
	return e
}

// Catalog is an immutable registry of environments. It is passed by value;
// accessors hand out copies so no caller can alter the shared table.
type Catalog struct {
	envs []Environment
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Environments []Environment `yaml:"environments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Environments) == 0 {
		return Catalog{}, fmt.Errorf("catalog has no environments")
	}

	seen := make(map[string]bool)
	for i, env := range doc.Environments {
		name := strings.TrimSpace(env.Name)
		switch {
		case name == "":
			return Catalog{}, fmt.Errorf("environment %d has no name", i)
		case seen[name]:
			return Catalog{}, fmt.Errorf("duplicate environment %q", name)
		case env.MinAge < 0 || env.MinAge > env.MaxAge:
			return Catalog{}, fmt.Errorf("environment %q: invalid age range [%d,%d]", name, env.MinAge, env.MaxAge)
		case len(env.Pathologies) == 0:
			return Catalog{}, fmt.Errorf("environment %q has no pathologies", name)
		}
		seen[name] = true
		doc.Environments[i].Name = name
	}
	return Catalog{envs: doc.Environments}, nil
}

var defaultCatalog = sync.OnceValue(func() Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic("clinical: embedded catalog: " + err.Error())
	}
	return c
})

// DefaultCatalog returns the embedded world catalog, parsed on first use.
func DefaultCatalog() Catalog {
	return defaultCatalog()
}

// Len is the number of environments.
func (c Catalog) Len() int {
	return len(c.envs)
}

// At returns a copy of the i-th environment.
func (c Catalog) At(i int) Environment {
	return c.envs[i].clone()
}

// Environments returns a copy of every environment, in catalog order.
func (c Catalog) Environments() []Environment {
	out := make([]Environment, len(c.envs))
	for i, e := range c.envs {
		out[i] = e.clone()
	}
	return out
}

// Lookup finds an environment by name.
func (c Catalog) Lookup(name string) (Environment, bool) {
	for _, e := range c.envs {
		if e.Name == name {
			return e.clone(), true
		}
	}
	return Environment{}, false
}
