// Package mapping holds the per-institution rules that translate raw
// statement columns into canonical transaction fields, and the registry
// the ingestion pipeline resolves them from.
package mapping

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/rfigueroa/bankfeed/pkg/models"
)

// ErrUnknownInstitution is returned by Resolve when no mapping set has
// been registered for the requested institution. This is fatal for the
// whole import, not for a single row.
var ErrUnknownInstitution = errors.New("unknown institution")

// InvalidMappingError reports a configuration defect in a mapping set,
// naming the offending field.
type InvalidMappingError struct {
	Institution string
	Field       string
	Reason      string
}

func (e *InvalidMappingError) Error() string {
	return fmt.Sprintf("invalid mapping for institution %q: field %q %s", e.Institution, e.Field, e.Reason)
}

// Registry stores institutions keyed by id. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	logger       *log.Logger
	institutions map[string]*models.Institution
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger:       logger,
		institutions: make(map[string]*models.Institution),
	}
}

// Register validates an institution's mapping set and stores it. Source
// fields must be unique, and no two rules may write the same canonical
// target.
func (r *Registry) Register(inst *models.Institution) error {
	if inst.ID == "" {
		return &InvalidMappingError{Institution: inst.Name, Field: "institutionId", Reason: "is empty"}
	}
	if err := validate(inst); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.institutions[inst.ID] = inst
	r.logger.Debug("registered institution", "id", inst.ID, "name", inst.Name, "mappings", len(inst.Mappings))
	return nil
}

// Resolve returns the mapping set for an institution.
func (r *Registry) Resolve(institutionID string) ([]models.FieldMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.institutions[institutionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstitution, institutionID)
	}
	return inst.Mappings, nil
}

// Get returns a registered institution by id.
func (r *Registry) Get(institutionID string) (*models.Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.institutions[institutionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstitution, institutionID)
	}
	return inst, nil
}

// List returns every registered institution.
func (r *Registry) List() []*models.Institution {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Institution, 0, len(r.institutions))
	for _, inst := range r.institutions {
		out = append(out, inst)
	}
	return out
}

func validate(inst *models.Institution) error {
	sources := make(map[string]struct{}, len(inst.Mappings))
	targets := make(map[string]struct{}, len(inst.Mappings))
	for _, rule := range inst.Mappings {
		if rule.Kind != models.MapStatic && rule.Kind != models.MapDynamic {
			return &InvalidMappingError{Institution: inst.ID, Field: rule.SourceField,
				Reason: fmt.Sprintf("has unknown map type %q", rule.Kind)}
		}
		if _, dup := sources[rule.SourceField]; dup {
			return &InvalidMappingError{Institution: inst.ID, Field: rule.SourceField,
				Reason: "appears more than once as a source"}
		}
		sources[rule.SourceField] = struct{}{}

		if rule.TargetField == "" {
			continue // explicit ignore
		}
		if _, ok := models.TargetFields[rule.TargetField]; !ok {
			return &InvalidMappingError{Institution: inst.ID, Field: rule.TargetField,
				Reason: "is not a canonical transaction field"}
		}
		if _, dup := targets[rule.TargetField]; dup {
			return &InvalidMappingError{Institution: inst.ID, Field: rule.TargetField,
				Reason: "is targeted by more than one rule"}
		}
		targets[rule.TargetField] = struct{}{}
	}
	return nil
}
