package enums

import "fmt"

// AuditEntity names the historied entity types tracked by the audit sink.
type AuditEntity string

const (
	AuditEntityProduct   AuditEntity = "product"
	AuditEntityPromoCode AuditEntity = "promo_code"
	AuditEntityOrder     AuditEntity = "order"
	AuditEntityReturn    AuditEntity = "return"
	AuditEntityAddress   AuditEntity = "address"
	AuditEntityUser      AuditEntity = "user"
)

var validAuditEntities = []AuditEntity{
	AuditEntityProduct,
	AuditEntityPromoCode,
	AuditEntityOrder,
	AuditEntityReturn,
	AuditEntityAddress,
	AuditEntityUser,
}

// String implements fmt.Stringer.
func (a AuditEntity) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditEntity.
func (a AuditEntity) IsValid() bool {
	for _, candidate := range validAuditEntities {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditEntity converts raw input into an AuditEntity.
func ParseAuditEntity(value string) (AuditEntity, error) {
	for _, candidate := range validAuditEntities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit entity %q", value)
}
