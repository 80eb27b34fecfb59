package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	schemasassets "github.com/3leaps/bucketglob/internal/assets/schemas"
	"github.com/3leaps/bucketglob/pkg/locator"
	"github.com/3leaps/bucketglob/pkg/match"
)

// SchemaID identifies the glob manifest schema.
const SchemaID = "bucketglob/v1.0.0/glob-manifest"

// Validation errors
var (
	// ErrSchemaNotFound indicates the schema file could not be located.
	ErrSchemaNotFound = errors.New("manifest schema not found")

	// ErrValidationFailed indicates the manifest failed schema validation.
	ErrValidationFailed = errors.New("manifest validation failed")
)

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidationError represents a single validation issue.
type ValidationError struct {
	// Path is the JSON pointer to the problematic field, e.g. "/locators/0".
	Path string

	// Message describes the validation failure.
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "glob manifest validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "glob manifest has %d errors:\n", len(e))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks m against the schema, then parses every locator and
// compiles its pattern and the filters. The struct form has already dropped
// unknown fields; ValidateRaw on the original input rejects those.
func Validate(m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("serialize glob manifest for validation: %w", err)
	}
	if err := ValidateRaw(data); err != nil {
		return err
	}
	return checkEntries(m)
}

// checkEntries reports, by JSON pointer, locators that do not parse,
// patterns that do not compile with the manifest's match options, repeated
// locators and filters that do not parse.
func checkEntries(m *Manifest) error {
	var errs ValidationErrors
	opts := m.MatchOptions()

	if _, err := match.Compile("**", match.Options{Excludes: opts.Excludes}); err != nil {
		errs = append(errs, ValidationError{Path: "/match/excludes", Message: err.Error()})
		opts.Excludes = nil
	}

	seen := make(map[string]int, len(m.Locators))
	for i, raw := range m.Locators {
		ptr := fmt.Sprintf("/locators/%d", i)
		if first, dup := seen[raw]; dup {
			errs = append(errs, ValidationError{Path: ptr, Message: fmt.Sprintf("duplicate of /locators/%d", first)})
			continue
		}
		seen[raw] = i

		loc, err := locator.Parse(raw)
		if err != nil {
			errs = append(errs, ValidationError{Path: ptr, Message: err.Error()})
			continue
		}
		if _, err := match.Compile(loc.Pattern, opts); err != nil {
			errs = append(errs, ValidationError{Path: ptr, Message: err.Error()})
		}
	}

	if _, err := match.NewObjectFilter(m.Filter()); err != nil {
		errs = append(errs, ValidationError{Path: "/filters", Message: err.Error()})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateRaw checks JSON data against the embedded schema and returns
// ValidationErrors listing every error-severity diagnostic.
func ValidateRaw(jsonData []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(jsonData)
	if err != nil {
		return fmt.Errorf("validate against %s: %w", SchemaID, err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{
				Path:    d.Pointer,
				Message: d.Message,
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// getValidator compiles the embedded schema once.
func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.GlobManifestSchema) == 0 {
			validatorErr = fmt.Errorf("%w: embedded glob-manifest schema is empty", ErrSchemaNotFound)
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.GlobManifestSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile manifest schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}
