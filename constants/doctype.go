package constants

import "strings"

// DocType identifies a supported document type. The value doubles as the key
// into the rule-set checklist configuration.
type DocType string

const (
	OplataSkarbowa   DocType = "oplata_skarbowa"
	LeaseStandard    DocType = "lease_standard"
	LeaseOkazjonalna DocType = "lease_okazjonalna"
	Meldunek         DocType = "meldunek"
	OwnerProof       DocType = "owner"
	Passport         DocType = "passport"
	Wniosek          DocType = "wniosek"
	EmploymentPack   DocType = "employment_pack"
	PIT              DocType = "pit"
	OtherDoc         DocType = "other"
)

// CheckKind names a deterministic check the system computes itself instead of
// trusting the reasoning service. Post-validators filter model-supplied checks
// by kind before inserting their own, so the deterministic result is
// authoritative and never duplicated.
type CheckKind string

const (
	CheckPaymentRecency    CheckKind = "payment_date_recent"
	CheckFeeAmount         CheckKind = "amount_correct"
	CheckDocumentAge       CheckKind = "document_age"
	CheckVerdictConsistent CheckKind = "verdict_consistent"
)

// deterministicChecks declares which deterministic validators apply per
// document type. Types absent from the map get none; validators never probe
// the type string themselves.
var deterministicChecks = map[DocType][]CheckKind{
	OplataSkarbowa:   {CheckPaymentRecency, CheckFeeAmount, CheckVerdictConsistent},
	LeaseStandard:    {CheckDocumentAge, CheckVerdictConsistent},
	LeaseOkazjonalna: {CheckDocumentAge, CheckVerdictConsistent},
	Meldunek:         {CheckDocumentAge, CheckVerdictConsistent},
	OwnerProof:       {CheckDocumentAge, CheckVerdictConsistent},
}

// ChecksFor returns the deterministic check kinds declared for a document
// type, in application order.
func ChecksFor(dt DocType) []CheckKind {
	return deterministicChecks[dt]
}

// HasCheck reports whether a document type declares the given kind.
func HasCheck(dt DocType, kind CheckKind) bool {
	for _, k := range deterministicChecks[dt] {
		if k == kind {
			return true
		}
	}
	return false
}

// NormalizeDocType maps free-form client input to a canonical DocType.
// Unknown strings pass through unchanged so the rule set can still be keyed
// by them; the second return reports whether the type is known.
func NormalizeDocType(input string) (DocType, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	switch s {
	case "oplata_skarbowa", "opłata_skarbowa", "oplata skarbowa":
		return OplataSkarbowa, true
	case "lease_standard", "umowa_najmu":
		return LeaseStandard, true
	case "lease_okazjonalna", "najem_okazjonalny":
		return LeaseOkazjonalna, true
	case "meldunek", "zameldowanie":
		return Meldunek, true
	case "owner":
		return OwnerProof, true
	case "passport", "paszport":
		return Passport, true
	case "wniosek", "anketa":
		return Wniosek, true
	case "employment_pack", "employment":
		return EmploymentPack, true
	case "pit":
		return PIT, true
	case "", "other", "unknown":
		return OtherDoc, s != "" && s != "unknown"
	default:
		return DocType(s), false
	}
}
