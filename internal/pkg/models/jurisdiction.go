package models

import (
	"strings"
)

// Jurisdiction is the lowercase code of a lottery jurisdiction (e.g. "nc")
type Jurisdiction string

const (
	JurisdictionNC Jurisdiction = "nc"
	JurisdictionPA Jurisdiction = "pa"
	JurisdictionMD Jurisdiction = "md"
)

// ParseJurisdiction normalizes user input ("NC", " pa ") to a Jurisdiction code
func ParseJurisdiction(s string) Jurisdiction {
	return Jurisdiction(strings.ToLower(strings.TrimSpace(s)))
}

// Display returns the upper-case form used in logs and API responses
func (j Jurisdiction) Display() string {
	return strings.ToUpper(string(j))
}

func (j Jurisdiction) String() string {
	return string(j)
}
