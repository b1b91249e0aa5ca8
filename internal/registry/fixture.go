package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadEntriesFromFile reads registry entries from a YAML or JSON file, for
// working offline from a snapshot of the Notion database.
func LoadEntriesFromFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read questions fixture")
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal questions fixture")
	}
	sortEntries(entries)
	return entries, nil
}
