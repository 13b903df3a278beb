package model

import (
	"regexp"
	"strings"
	"time"
)

// Identity document types accepted at check-in.
const (
	DocCitizenID   = "CC"  // cédula de ciudadanía
	DocForeignerID = "CE"  // cédula de extranjería
	DocMinorID     = "TI"  // tarjeta de identidad
	DocTaxID       = "NIT" // company tax id
	DocPassport    = "PA"
)

var (
	numericDocRe  = regexp.MustCompile(`^[0-9]{5,15}$`)
	passportDocRe = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)
)

// GuestDetails holds the guest data captured at booking time: a primary
// guest and an optional companion.  A row is written in the same
// transaction as its reservation and is never updated afterwards.
type GuestDetails struct {
	ID                 uint64    `db:"id" json:"-"`
	ReservationID      uint64    `db:"reservation_id" json:"reservation_id"`
	Name               string    `db:"name" json:"name"`
	DocType            string    `db:"doc_type" json:"doc_type"`
	DocNumber          string    `db:"doc_number" json:"doc_number"`
	Phone              string    `db:"phone" json:"phone"`
	Email              string    `db:"email" json:"email"`
	Origin             string    `db:"origin" json:"origin"`
	CompanionName      *string   `db:"companion_name" json:"companion_name,omitempty"`
	CompanionDocType   *string   `db:"companion_doc_type" json:"companion_doc_type,omitempty"`
	CompanionDocNumber *string   `db:"companion_doc_number" json:"companion_doc_number,omitempty"`
	CompanionPhone     *string   `db:"companion_phone" json:"companion_phone,omitempty"`
	CompanionEmail     *string   `db:"companion_email" json:"companion_email,omitempty"`
	CompanionOrigin    *string   `db:"companion_origin" json:"companion_origin,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// HasCompanion reports whether a companion was registered.
func (g GuestDetails) HasCompanion() bool {
	return g.CompanionName != nil && strings.TrimSpace(*g.CompanionName) != ""
}

// ValidDocuments checks the primary document and, when a companion is
// present, the companion document as well.
func (g GuestDetails) ValidDocuments() bool {
	if !ValidDocument(g.DocType, g.DocNumber) {
		return false
	}
	if g.HasCompanion() {
		if g.CompanionDocType == nil || g.CompanionDocNumber == nil {
			return false
		}
		return ValidDocument(*g.CompanionDocType, *g.CompanionDocNumber)
	}
	return true
}

// ValidDocument reports whether number is well formed for docType.
// Passports are alphanumeric; every other type is numeric.
func ValidDocument(docType, number string) bool {
	number = strings.ToUpper(strings.TrimSpace(number))
	switch strings.ToUpper(strings.TrimSpace(docType)) {
	case DocCitizenID, DocForeignerID, DocMinorID, DocTaxID:
		return numericDocRe.MatchString(number)
	case DocPassport:
		return passportDocRe.MatchString(number)
	}
	return false
}
