package ledger

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mfgops/ledger/internal/domain/shared"
)

// Material identifies a raw-material type. It is owned by an external catalog
// and is read-only for the ledger.
type Material struct {
	shared.BaseEntity
	Code string
	Name string
	Unit string
}

// NewMaterial creates a catalog material
func NewMaterial(code, name, unit string) (*Material, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewInvalidArgumentError("code", "material code is required")
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewInvalidArgumentError("unit", "unit of measure is required")
	}
	return &Material{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
		Unit:       strings.TrimSpace(unit),
	}, nil
}

// Ref returns the resolved reference of the material.
func (m *Material) Ref() MaterialRef {
	return MaterialRef{ID: m.ID, Code: m.Code, Name: m.Name, Unit: m.Unit}
}

// Supplier is an external supplier reference used for batch traceability
type Supplier struct {
	shared.BaseEntity
	Code string
	Name string
}

// NewSupplier creates a supplier reference
func NewSupplier(code, name string) (*Supplier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewInvalidArgumentError("code", "supplier code is required")
	}
	return &Supplier{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       strings.TrimSpace(name),
	}, nil
}

// Lot is a production lot that consumes material
type Lot struct {
	shared.BaseEntity
	LotNo string
}

// NewLot creates a production lot reference
func NewLot(lotNo string) (*Lot, error) {
	lotNo = strings.TrimSpace(lotNo)
	if lotNo == "" {
		return nil, shared.NewInvalidArgumentError("lot_no", "lot number is required")
	}
	return &Lot{BaseEntity: shared.NewBaseEntity(), LotNo: lotNo}, nil
}

// Key identifies a catalog entry either by ID or by code.
// When both are set the ID wins.
type Key struct {
	ID   uuid.UUID
	Code string
}

// KeyByID builds a key from an ID
func KeyByID(id uuid.UUID) Key {
	return Key{ID: id}
}

// KeyByCode builds a key from a code
func KeyByCode(code string) Key {
	return Key{Code: strings.TrimSpace(code)}
}

// IsZero reports whether neither identifier is set
func (k Key) IsZero() bool {
	return k.ID == uuid.Nil && strings.TrimSpace(k.Code) == ""
}

// HasID reports whether the key resolves by ID
func (k Key) HasID() bool {
	return k.ID != uuid.Nil
}

// String renders the key for messages and logs
func (k Key) String() string {
	if k.HasID() {
		return k.ID.String()
	}
	return k.Code
}

// MaterialRef is a material resolved once at the start of an operation.
// Everything downstream works with the ID only.
type MaterialRef struct {
	ID   uuid.UUID `json:"material_id"`
	Code string    `json:"material_code"`
	Name string    `json:"material_name"`
	Unit string    `json:"unit"`
}
