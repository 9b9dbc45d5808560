// file: internal/schema/name_rules.go

package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// EntityType represents a type of MCP entity that needs name validation.
type EntityType string

const (
	// EntityTypeTool represents a tool entity in MCP.
	EntityTypeTool EntityType = "tool"
)

// NameRule defines validation rules for an entity name.
type NameRule struct {
	// Pattern is the regex pattern the name must match.
	Pattern *regexp.Regexp

	// Description is a human-readable description of the pattern.
	Description string

	// MaxLength is the maximum allowed length of the name.
	MaxLength int

	// ExampleValid contains examples of valid names.
	ExampleValid []string

	// ExampleInvalid contains examples of invalid names with reasons.
	ExampleInvalid map[string]string
}

// nameRules maps entity types to their validation rules.
// Tool names follow the <resource>_<action> convention, e.g. timeentry_single.
var nameRules = map[EntityType]NameRule{
	EntityTypeTool: {
		Pattern:     regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`),
		Description: "Must be lowercase snake_case starting with a letter",
		MaxLength:   64,
		ExampleValid: []string{
			"timeentry_single",
			"timeentry_list",
			"invoice_single",
		},
		ExampleInvalid: map[string]string{
			"TimeEntry_single": "Contains uppercase letters",
			"timeentry-single": "Contains hyphen",
			"timeentry__list":  "Contains an empty segment",
			"_invoice":         "Starts with underscore",
			"1invoice":         "Starts with number",
			"":                 "Empty string",
		},
	},
}

// GetNameRule returns the validation rule for a specific entity type.
func GetNameRule(entityType EntityType) (NameRule, bool) {
	rule, ok := nameRules[entityType]
	return rule, ok
}

// ValidateName validates a name against the rules for a specific entity type.
func ValidateName(entityType EntityType, name string) error {
	rule, ok := GetNameRule(entityType)
	if !ok {
		return errors.Newf("unknown entity type: %s", entityType)
	}

	if len(name) == 0 {
		return errors.Newf("empty %s name is not allowed", entityType)
	}

	if len(name) > rule.MaxLength {
		return errors.Newf("%s name exceeds maximum length of %d characters", entityType, rule.MaxLength)
	}

	if !rule.Pattern.MatchString(name) {
		return errors.Newf("invalid %s name '%s': %s", entityType, name, rule.Description)
	}

	return nil
}

// GetNamePatternDescription returns a human-readable description of the naming pattern
// for a specific entity type.
func GetNamePatternDescription(entityType EntityType) string {
	rule, ok := GetNameRule(entityType)
	if !ok {
		return fmt.Sprintf("No pattern defined for %s", entityType)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Rules for %s names:\n", entityType)
	fmt.Fprintf(&builder, "- %s\n", rule.Description)
	fmt.Fprintf(&builder, "- Maximum length: %d characters\n", rule.MaxLength)

	if len(rule.ExampleValid) > 0 {
		quoted := make([]string, len(rule.ExampleValid))
		for i, ex := range rule.ExampleValid {
			quoted[i] = fmt.Sprintf("%q", ex)
		}
		fmt.Fprintf(&builder, "- Valid examples: %s\n", strings.Join(quoted, ", "))
	}

	if len(rule.ExampleInvalid) > 0 {
		invalid := make([]string, 0, len(rule.ExampleInvalid))
		for ex := range rule.ExampleInvalid {
			invalid = append(invalid, ex)
		}
		sort.Strings(invalid)
		builder.WriteString("- Invalid examples:\n")
		for _, ex := range invalid {
			fmt.Fprintf(&builder, "  - %q: %s\n", ex, rule.ExampleInvalid[ex])
		}
	}

	return builder.String()
}
