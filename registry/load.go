package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Definitions []Definition `yaml:"definitions"`
}

// Load reads a catalog of resource definitions from a YAML file. Every
// definition is validated; one bad entry fails the whole load.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing definitions %s: %w", path, err)
	}
	cat := NewCatalog()
	for _, d := range file.Definitions {
		if err := cat.Add(d); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cat, nil
}
