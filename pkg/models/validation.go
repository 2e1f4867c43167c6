package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ItIsGreg/Raki-sub002/pkg/constants"
)

// Validation is the result of checking a payload: either valid, or invalid
// with the reasons. The zero value is valid.
type Validation struct {
	entity  EntityType
	reasons []string
}

// Valid returns a passing result.
func Valid() Validation { return Validation{} }

// Invalid returns a failing result carrying the given reasons.
func Invalid(entity EntityType, reasons ...string) Validation {
	return Validation{entity: entity, reasons: reasons}
}

func (v Validation) OK() bool          { return len(v.reasons) == 0 }
func (v Validation) Reasons() []string { return v.reasons }

// AsError returns nil for a valid result and a *ValidationError otherwise.
func (v Validation) AsError() error {
	if v.OK() {
		return nil
	}
	return &ValidationError{Entity: v.entity, Reasons: v.reasons}
}

// Validator is implemented by every payload that can be created or updated.
type Validator interface {
	Validate() Validation
}

// ValidationError reports a payload that failed schema validation, locally
// or on the server (HTTP 422).
type ValidationError struct {
	Entity  EntityType
	Reasons []string
}

func (e *ValidationError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("validation failed: %s", strings.Join(e.Reasons, "; "))
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(e.Reasons, "; "))
}

func (e *ValidationError) Unwrap() error { return constants.ErrValidation }

// checks accumulates reasons for a single entity.
type checks struct {
	entity  EntityType
	reasons []string
}

func (c *checks) require(ok bool, format string, args ...any) {
	if !ok {
		c.reasons = append(c.reasons, fmt.Sprintf(format, args...))
	}
}

func (c *checks) name(name string) {
	c.require(strings.TrimSpace(name) != "", "name is required")
}

func (c *checks) mode(m Mode) {
	c.require(m == ModeDatapointExtraction || m == ModeTextSegmentation, "unknown mode %q", m)
}

func (c *checks) result() Validation {
	if len(c.reasons) == 0 {
		return Valid()
	}
	return Invalid(c.entity, c.reasons...)
}

func (w Workspace) Validate() Validation {
	c := checks{entity: EntityWorkspace}
	c.name(w.Name)
	c.require(w.StorageType == StorageLocal || w.StorageType == StorageCloud, "unknown storage type %q", w.StorageType)
	return c.result()
}

func (p Profile) Validate() Validation {
	c := checks{entity: EntityProfile}
	c.name(p.Name)
	c.mode(p.Mode)
	return c.result()
}

func (p ProfilePoint) Validate() Validation {
	c := checks{entity: EntityProfilePoint}
	c.name(p.Name)
	c.require(!p.ProfileID.IsZero(), "profile_id is required")
	for _, s := range p.Synonyms {
		c.require(strings.TrimSpace(s) != "", "synonyms must not contain empty entries")
	}
	switch p.Datatype {
	case "", DatatypeText, DatatypeNumber:
		c.require(len(p.Valueset) == 0, "valueset is only allowed for datatype %q", DatatypeValueset)
	case DatatypeValueset:
		c.require(len(p.Valueset) > 0, "valueset datatype needs at least one value")
	default:
		c.require(false, "unknown datatype %q", p.Datatype)
	}
	return c.result()
}

func (d Dataset) Validate() Validation {
	c := checks{entity: EntityDataset}
	c.name(d.Name)
	c.mode(d.Mode)
	return c.result()
}

func (t Text) Validate() Validation {
	c := checks{entity: EntityText}
	c.require(!t.DatasetID.IsZero(), "dataset_id is required")
	c.require(strings.TrimSpace(t.Filename) != "", "filename is required")
	return c.result()
}

func (a AnnotatedDataset) Validate() Validation {
	c := checks{entity: EntityAnnotatedDataset}
	c.name(a.Name)
	c.mode(a.Mode)
	c.require(!a.DatasetID.IsZero(), "dataset_id is required")
	c.require(!a.ProfileID.IsZero(), "profile_id is required")
	return c.result()
}

func (a AnnotatedText) Validate() Validation {
	c := checks{entity: EntityAnnotatedText}
	c.require(!a.AnnotatedDatasetID.IsZero(), "annotated_dataset_id is required")
	c.require(!a.TextID.IsZero(), "text_id is required")
	return c.result()
}

func (d DataPoint) Validate() Validation {
	c := checks{entity: EntityDataPoint}
	c.require(!d.AnnotatedTextID.IsZero(), "annotated_text_id is required")
	if d.Match != nil {
		c.require(d.Match.Start >= 0, "match start must not be negative")
		c.require(d.Match.Start < d.Match.End, "match start must be before end")
	}
	return c.result()
}

// ValidateMatch checks the match span against the text it points into.
// Offsets count characters, not bytes.
func (d DataPoint) ValidateMatch(text string) Validation {
	if d.Match == nil {
		return Valid()
	}
	c := checks{entity: EntityDataPoint}
	n := utf8.RuneCountInString(text)
	c.require(d.Match.End <= n, "match end %d exceeds text length %d", d.Match.End, n)
	return c.result()
}
