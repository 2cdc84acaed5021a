package mapping

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rfigueroa/bankfeed/pkg/models"
)

type institutionsFile struct {
	Institutions []models.Institution `yaml:"institutions"`
}

// LoadFile reads a YAML institutions file and registers every entry.
// Entries without an id get one generated, which only makes sense for
// throwaway runs; persistent setups should pin ids in the file.
func LoadFile(path string, registry *Registry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read institutions file: %w", err)
	}

	var file institutionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse institutions file: %w", err)
	}
	if len(file.Institutions) == 0 {
		return 0, fmt.Errorf("institutions file %s has no institutions", path)
	}

	for i := range file.Institutions {
		inst := &file.Institutions[i]
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		if err := registry.Register(inst); err != nil {
			return 0, err
		}
	}
	return len(file.Institutions), nil
}
