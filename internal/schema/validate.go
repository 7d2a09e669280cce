// Package schema - entity validation
package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fusionvision/thermal-events-go/internal/geometry"
	"github.com/fusionvision/thermal-events-go/internal/observability/metrics"
)

// Entity labels used in validation errors and metrics.
const (
	entityThermalEvent = metrics.LabelThermalEvent
	entityInstance     = "thermal_event_instance"
	entityDescriptor   = "strike_line_descriptor"
)

// FieldError names one violated field. Fields of nested instances are
// reported as "instances[i].<field>".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field of one entity, not just the
// first, so a caller can fix a payload in a single pass.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s failed validation: %s", e.Entity, strings.Join(parts, "; "))
}

// finishValidation turns the collected field errors into a ValidationError,
// recording the outcome. Field names are stripped to their leaf component for
// the failure metric so instance indices do not blow up label cardinality.
func finishValidation(entity string, fields []FieldError) error {
	m := getMetrics()
	if len(fields) == 0 {
		if m != nil {
			m.RecordValidation(entity, "success")
		}
		return nil
	}
	if m != nil {
		m.RecordValidation(entity, "error")
		for _, f := range fields {
			name := f.Field
			if i := strings.LastIndex(name, "."); i >= 0 {
				name = name[i+1:]
			}
			m.RecordValidationFailure(entity, name)
		}
	}
	return &ValidationError{Entity: entity, Fields: fields}
}

// appendLengthCheck appends a field error when value exceeds maxLen
// characters. Lengths are counted in runes, matching how the database
// columns count them.
func appendLengthCheck(fields []FieldError, field, value string, maxLen int) []FieldError {
	if utf8.RuneCountInString(value) > maxLen {
		fields = append(fields, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters", maxLen),
		})
	}
	return fields
}

// appendPolygonCheck appends field errors when the encoded polygon does not
// fit its column or does not parse as coordinate pairs.
func appendPolygonCheck(fields []FieldError, field, encoded string) []FieldError {
	fields = appendLengthCheck(fields, field, encoded, maxPolygonLen)
	if _, err := geometry.StringToPolygon(encoded); err != nil {
		fields = append(fields, FieldError{
			Field:   field,
			Message: "must be a space-separated list of integer coordinate pairs",
		})
	}
	return fields
}

// Validate checks the event and all of its instances, returning a
// ValidationError naming every violated field, or nil.
func (e *ThermalEvent) Validate() error {
	return finishValidation(entityThermalEvent, e.fieldErrors())
}

func (e *ThermalEvent) fieldErrors() []FieldError {
	var fields []FieldError

	if e.ExperimentID <= 0 {
		fields = append(fields, FieldError{Field: "experiment_id", Message: "must be positive"})
	}
	if e.Device == "" {
		fields = append(fields, FieldError{Field: "device", Message: "is required"})
	}
	if e.Method == "" {
		fields = append(fields, FieldError{Field: "method", Message: "is required"})
	}

	fields = appendLengthCheck(fields, "line_of_sight", e.LineOfSight, maxStringLen)
	fields = appendLengthCheck(fields, "device", e.Device, maxStringLen)
	fields = appendLengthCheck(fields, "category", e.Category, maxStringLen)
	fields = appendLengthCheck(fields, "method", e.Method, maxStringLen)
	fields = appendLengthCheck(fields, "user", e.User, maxStringLen)
	fields = appendLengthCheck(fields, "comments", e.Comments, maxStringLen)
	fields = appendLengthCheck(fields, "name", e.Name, maxStringLen)
	fields = appendLengthCheck(fields, "dataset", e.Dataset, maxShortStringLen)
	fields = appendLengthCheck(fields, "analysis_status", e.AnalysisStatus, maxShortStringLen)
	if e.Severity != nil {
		fields = appendLengthCheck(fields, "severity", *e.Severity, maxShortStringLen)
	}

	if e.Confidence < 0 || e.Confidence > 1 {
		fields = append(fields, FieldError{Field: "confidence", Message: "must be between 0 and 1"})
	}
	if e.FinalTimestampNs < e.InitialTimestampNs {
		fields = append(fields, FieldError{
			Field:   "final_timestamp_ns",
			Message: "must not precede initial_timestamp_ns",
		})
	} else if e.DurationNs != e.FinalTimestampNs-e.InitialTimestampNs {
		fields = append(fields, FieldError{
			Field:   "duration_ns",
			Message: "must equal final_timestamp_ns - initial_timestamp_ns",
		})
	}

	if len(e.Instances) == 0 {
		fields = append(fields, FieldError{Field: "instances", Message: "at least one instance is required"})
	}
	for i := range e.Instances {
		fields = append(fields, e.Instances[i].fieldErrors(fmt.Sprintf("instances[%d].", i))...)
	}
	return fields
}

// Validate checks a standalone instance, returning a ValidationError naming
// every violated field, or nil.
func (i *ThermalEventInstance) Validate() error {
	return finishValidation(entityInstance, i.fieldErrors(""))
}

func (i *ThermalEventInstance) fieldErrors(prefix string) []FieldError {
	var fields []FieldError

	if i.TimestampNs < 0 {
		fields = append(fields, FieldError{Field: prefix + "timestamp_ns", Message: "must not be negative"})
	}
	if i.BboxX < 0 {
		fields = append(fields, FieldError{Field: prefix + "bbox_x", Message: "must not be negative"})
	}
	if i.BboxY < 0 {
		fields = append(fields, FieldError{Field: prefix + "bbox_y", Message: "must not be negative"})
	}
	if i.BboxWidth < 1 {
		fields = append(fields, FieldError{Field: prefix + "bbox_width", Message: "must be at least 1"})
	}
	if i.BboxHeight < 1 {
		fields = append(fields, FieldError{Field: prefix + "bbox_height", Message: "must be at least 1"})
	}
	if i.Polygon != "" {
		fields = appendPolygonCheck(fields, prefix+"polygon", i.Polygon)
	}
	return fields
}

// Validate checks a descriptor, returning a ValidationError naming every
// violated field, or nil.
func (d *StrikeLineDescriptor) Validate() error {
	return finishValidation(entityDescriptor, d.fieldErrors())
}

func (d *StrikeLineDescriptor) fieldErrors() []FieldError {
	var fields []FieldError

	if d.SegmentedPoints == "" {
		fields = append(fields, FieldError{Field: "segmented_points", Message: "is required"})
	} else {
		fields = appendPolygonCheck(fields, "segmented_points", d.SegmentedPoints)
	}
	fields = appendLengthCheck(fields, "comments", d.Comments, maxStringLen)
	return fields
}
