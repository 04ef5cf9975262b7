package catalog

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileCatalog is the on-disk YAML layout.
type fileCatalog struct {
	Categories []Category `yaml:"categories"`
	Agents     []Agent    `yaml:"agents"`
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}
	if len(fc.Categories) == 0 {
		return nil, errors.New("catalog has no categories")
	}
	c, err := New(fc.Categories, fc.Agents)
	if err != nil {
		return nil, errors.Wrap(err, "invalid catalog")
	}
	return c, nil
}

// Marshal renders c in the format LoadFile accepts.
func Marshal(c *Catalog) ([]byte, error) {
	data, err := yaml.Marshal(fileCatalog{Categories: c.ListCategories(), Agents: c.ListAgents("")})
	return data, errors.Wrap(err, "marshal catalog")
}
