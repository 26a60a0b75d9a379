package schema

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// tomlFile is the on-disk shape of a schema definition:
//
//	[[types]]
//	name = "callout"
//	flags = ["block", "container"]
type tomlFile struct {
	Types []struct {
		Name  string   `toml:"name"`
		Flags []string `toml:"flags"`
	} `toml:"types"`
}

// LoadTOML registers every type defined in data into s.
func LoadTOML(s *Schema, data []byte) error {
	var f tomlFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing schema: %w", err)
	}
	for _, def := range f.Types {
		var flags Flags
		for _, name := range def.Flags {
			fl, err := ParseFlag(name)
			if err != nil {
				return fmt.Errorf("type %s: %w", def.Name, err)
			}
			flags |= fl
		}
		if err := s.Register(NodeType{Name: def.Name, Flags: flags}); err != nil {
			return err
		}
	}
	return nil
}

// LoadTOMLFile reads path and registers its types into s.
func LoadTOMLFile(s *Schema, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schema file %s: %w", path, err)
	}
	return LoadTOML(s, data)
}
