// =============================================================================
// SAF-T PT Generator - Entity Kinds
// =============================================================================
//
// Kind is the closed set of domain entities that can be produced from
// tabular rows and stored between runs. Every Kind has exactly one Go type;
// DecodeEntity is the only place that maps a Kind back to its type.
//
// =============================================================================

package saft

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a mappable, storable entity type.
type Kind int

const (
	KindUnknown Kind = iota
	KindCustomer
	KindSupplier
	KindProduct
	KindGeneralLedgerAccount
	KindTaxTableEntry
	KindLedgerLine
)

// ErrUnknownKind is returned when a name does not identify any Kind.
var ErrUnknownKind = errors.New("unknown entity kind")

var kindNames = map[Kind]string{
	KindCustomer:             "Customer",
	KindSupplier:             "Supplier",
	KindProduct:              "Product",
	KindGeneralLedgerAccount: "GeneralLedgerAccount",
	KindTaxTableEntry:        "TaxTableEntry",
	KindLedgerLine:           "LedgerLine",
}

// kindAliases accepts the names used by older mapping profiles.
var kindAliases = map[string]Kind{
	"account":     KindGeneralLedgerAccount,
	"glaccount":   KindGeneralLedgerAccount,
	"taxentry":    KindTaxTableEntry,
	"journalline": KindLedgerLine,
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindCustomer,
		KindSupplier,
		KindProduct,
		KindGeneralLedgerAccount,
		KindTaxTableEntry,
		KindLedgerLine,
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a kind by name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	trimmed := strings.TrimSpace(name)
	for k, n := range kindNames {
		if strings.EqualFold(n, trimmed) {
			return k, nil
		}
	}
	if k, ok := kindAliases[strings.ToLower(trimmed)]; ok {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Entity is implemented by every kind-addressable domain type.
type Entity interface {
	// Kind returns the entity's kind.
	Kind() Kind
	// Key returns the natural identity of the entity within its kind.
	Key() string
	// Validate runs field checks followed by cross-field invariants.
	Validate() error
}

// DecodeEntity decodes a JSON payload produced by json.Marshal(entity).
func DecodeEntity(kind Kind, data []byte) (Entity, error) {
	switch kind {
	case KindCustomer:
		return decodeAs[Customer](data)
	case KindSupplier:
		return decodeAs[Supplier](data)
	case KindProduct:
		return decodeAs[Product](data)
	case KindGeneralLedgerAccount:
		return decodeAs[GeneralLedgerAccount](data)
	case KindTaxTableEntry:
		return decodeAs[TaxTableEntry](data)
	case KindLedgerLine:
		return decodeAs[LedgerLine](data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

func decodeAs[T Entity](data []byte) (Entity, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return v, nil
}
