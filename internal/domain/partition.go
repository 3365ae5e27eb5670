package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// dateRe matches canonical YYYY-MM-DD dates. Lexical comparison of dates in
// this form is chronological, which the eligibility gate relies on.
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// PartitionKey identifies one unit of materialization work: a calendar date
// and a field. The wire encoding is "date|field_id".
type PartitionKey struct {
	Date    string
	FieldID string
}

// ParsePartitionKey decodes the "YYYY-MM-DD|field_id" wire form.
func ParsePartitionKey(s string) (PartitionKey, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PartitionKey{}, fmt.Errorf("malformed partition key %q: want date|field_id", s)
	}
	if !dateRe.MatchString(parts[0]) {
		return PartitionKey{}, fmt.Errorf("malformed partition key %q: date must be YYYY-MM-DD", s)
	}
	return PartitionKey{Date: parts[0], FieldID: parts[1]}, nil
}

// String returns the wire encoding.
func (k PartitionKey) String() string {
	return k.Date + "|" + k.FieldID
}
