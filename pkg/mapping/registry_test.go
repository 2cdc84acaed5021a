package mapping

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/rfigueroa/bankfeed/pkg/models"
)

func newTestRegistry() *Registry {
	return NewRegistry(log.New(io.Discard))
}

func testInstitution() *models.Institution {
	inst := models.NewInstitution("Test Bank", "unit test fixture")
	inst.AddMapping("Transaction Date", models.FieldDatePosted, models.MapDynamic).
		AddMapping("Description", models.FieldDescription, models.MapDynamic).
		AddMapping("Amount", models.FieldAmount, models.MapDynamic).
		AddMapping("USD", models.FieldCurrency, models.MapStatic)
	return inst
}

func TestRegisterAndResolve(t *testing.T) {
	r := newTestRegistry()
	inst := testInstitution()
	if err := r.Register(inst); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	mappings, err := r.Resolve(inst.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(mappings) != 4 {
		t.Errorf("expected 4 rules, got %d", len(mappings))
	}

	got, err := r.Get(inst.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Test Bank" {
		t.Errorf("got institution %q", got.Name)
	}
	if len(r.List()) != 1 {
		t.Errorf("expected 1 institution listed, got %d", len(r.List()))
	}
}

func TestResolveUnknownInstitution(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Resolve("nope"); !errors.Is(err, ErrUnknownInstitution) {
		t.Errorf("expected ErrUnknownInstitution, got %v", err)
	}
}

func TestRegisterRejectsDuplicateSource(t *testing.T) {
	inst := testInstitution()
	inst.AddMapping("Amount", models.FieldTax, models.MapDynamic)

	err := newTestRegistry().Register(inst)
	var invalid *InvalidMappingError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMappingError, got %v", err)
	}
	if invalid.Field != "Amount" {
		t.Errorf("error names field %q, want Amount", invalid.Field)
	}
}

func TestRegisterRejectsDuplicateTarget(t *testing.T) {
	inst := testInstitution()
	inst.AddMapping("Posted", models.FieldDatePosted, models.MapDynamic)

	err := newTestRegistry().Register(inst)
	var invalid *InvalidMappingError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMappingError, got %v", err)
	}
	if invalid.Field != models.FieldDatePosted {
		t.Errorf("error names field %q, want %s", invalid.Field, models.FieldDatePosted)
	}
}

func TestRegisterRejectsUnknownTarget(t *testing.T) {
	inst := testInstitution()
	inst.AddMapping("Memo", "scratchpad", models.MapDynamic)

	err := newTestRegistry().Register(inst)
	var invalid *InvalidMappingError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMappingError, got %v", err)
	}
}

func TestRegisterRejectsUnknownMapKind(t *testing.T) {
	inst := testInstitution()
	inst.Mappings = append(inst.Mappings, models.FieldMapping{
		SourceField: "Memo", TargetField: models.FieldMerchant, Kind: "wishful",
	})

	var invalid *InvalidMappingError
	if err := newTestRegistry().Register(inst); !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMappingError, got %v", err)
	}
}

func TestRegisterAllowsIgnoredColumns(t *testing.T) {
	inst := testInstitution()
	inst.AddMapping("Reference Number", "", models.MapDynamic)
	if err := newTestRegistry().Register(inst); err != nil {
		t.Errorf("empty target should mean ignore, got %v", err)
	}
}

func TestRegisterRequiresID(t *testing.T) {
	inst := testInstitution()
	inst.ID = ""
	if err := newTestRegistry().Register(inst); err == nil {
		t.Error("institution without id should be rejected")
	}
}
