// Package schema - events file encoding and decoding
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fusionvision/thermal-events-go/internal/errors"
	"github.com/fusionvision/thermal-events-go/internal/observability/metrics"
)

// Events files are JSON objects keyed by a running index "0".."n", or by the
// event id when the writer asked for id keys. The compact encoding and the
// column-named fields keep the files interchangeable with the other site
// tools that produce and consume them.

// EventValidationError reports every event of a payload that failed
// validation, keyed the way the payload keys them. Valid events of the same
// payload are withheld: a file is accepted or rejected as a whole.
type EventValidationError struct {
	Operation string           `json:"operation"`
	Events    map[string]error `json:"-"`
}

func (e *EventValidationError) Error() string {
	keys := make([]string, 0, len(e.Events))
	for key := range e.Events {
		keys = append(keys, key)
	}
	sortEventKeys(keys)

	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("event %s: %v", key, e.Events[key])
	}
	return fmt.Sprintf("%d event(s) failed validation: %s", len(keys), strings.Join(parts, "; "))
}

// sortEventKeys orders payload keys numerically where possible, so decoded
// events come back in the order they were written regardless of JSON object
// key order.
func sortEventKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseUint(keys[i], 10, 64)
		b, bErr := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

// fileIOError wraps an operating system failure on an events file.
func fileIOError(err error, operation, path string) error {
	builder := errors.New(err).
		Component("schema").
		Category(errors.CategoryFileIO).
		Context("operation", operation)
	if path != "" {
		builder = builder.Context("path", path)
	}
	return builder.Build()
}

// payloadError wraps a malformed payload or failed per-event validation.
func payloadError(err error, operation string) error {
	return errors.New(err).
		Component("schema").
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}

// encodeEvents validates the events and assembles the keyed JSON object.
// Keys are emitted in input order. Every invalid event is reported, along
// with any key collisions when ids are used as keys.
func encodeEvents(events []*ThermalEvent, useIDAsKey bool) ([]byte, error) {
	keys := make([]string, len(events))
	seen := make(map[string]int, len(events))
	invalid := make(map[string]error)

	for i, event := range events {
		key := strconv.Itoa(i)
		if useIDAsKey && event != nil {
			key = strconv.FormatUint(event.ID, 10)
		}
		keys[i] = key

		if event == nil {
			invalid[key] = fmt.Errorf("event is nil")
			continue
		}
		if first, dup := seen[key]; dup {
			invalid[key] = fmt.Errorf("events %d and %d share the key %q", first, i, key)
			continue
		}
		seen[key] = i

		if err := event.Validate(); err != nil {
			invalid[key] = err
		}
	}
	if len(invalid) > 0 {
		return nil, payloadError(&EventValidationError{Operation: "encode", Events: invalid}, "encode_events")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, event := range events {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(keys[i])
		if err != nil {
			return nil, payloadError(err, "encode_events")
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		eventJSON, err := json.Marshal(event)
		if err != nil {
			return nil, payloadError(err, "encode_events")
		}
		buf.Write(eventJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeEventsPayload parses the keyed JSON object and validates every
// event, collecting per-event failures. Events come back ordered by their
// numeric key.
func decodeEventsPayload(data []byte) ([]*ThermalEvent, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, payloadError(err, "decode_events")
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sortEventKeys(keys)

	events := make([]*ThermalEvent, 0, len(keys))
	invalid := make(map[string]error)
	for _, key := range keys {
		event := &ThermalEvent{}
		if err := json.Unmarshal(raw[key], event); err != nil {
			invalid[key] = err
			continue
		}
		if err := event.Validate(); err != nil {
			invalid[key] = err
			continue
		}
		events = append(events, event)
	}
	if len(invalid) > 0 {
		return nil, payloadError(&EventValidationError{Operation: "decode", Events: invalid}, "decode_events")
	}
	return events, nil
}

// EncodeEvents validates the events and writes them to w as a JSON object
// keyed "0".."n", or by event id when useIDAsKey is true. The whole payload
// is rejected when any event fails validation.
func EncodeEvents(w io.Writer, events []*ThermalEvent, useIDAsKey bool) error {
	start := time.Now()
	payload, err := encodeEvents(events, useIDAsKey)
	if err != nil {
		recordFileOperation(metrics.OpFileWrite, "error", time.Since(start).Seconds())
		return err
	}
	if _, err := w.Write(payload); err != nil {
		recordFileOperation(metrics.OpFileWrite, "error", time.Since(start).Seconds())
		return fileIOError(err, "encode_events", "")
	}
	recordFileOperation(metrics.OpFileWrite, "success", time.Since(start).Seconds())
	recordFilePayload(metrics.OpFileWrite, int64(len(payload)), len(events))
	return nil
}

// WriteEventsFile writes the events to path, replacing any existing file.
// The payload format is that of EncodeEvents.
func WriteEventsFile(path string, events []*ThermalEvent, useIDAsKey bool) error {
	start := time.Now()
	payload, err := encodeEvents(events, useIDAsKey)
	if err != nil {
		recordFileOperation(metrics.OpFileWrite, "error", time.Since(start).Seconds())
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		recordFileOperation(metrics.OpFileWrite, "error", time.Since(start).Seconds())
		return fileIOError(err, "write_events_file", path)
	}
	recordFileOperation(metrics.OpFileWrite, "success", time.Since(start).Seconds())
	recordFilePayload(metrics.OpFileWrite, int64(len(payload)), len(events))
	return nil
}

// DecodeEvents reads a keyed JSON payload from r and returns its events,
// validated and ordered by numeric key. When any event fails validation the
// whole payload is rejected and the error names every offending key.
func DecodeEvents(r io.Reader) ([]*ThermalEvent, error) {
	start := time.Now()
	data, err := io.ReadAll(r)
	if err != nil {
		recordFileOperation(metrics.OpFileRead, "error", time.Since(start).Seconds())
		return nil, fileIOError(err, "decode_events", "")
	}
	events, err := decodeEventsPayload(data)
	if err != nil {
		recordFileOperation(metrics.OpFileRead, "error", time.Since(start).Seconds())
		return nil, err
	}
	recordFileOperation(metrics.OpFileRead, "success", time.Since(start).Seconds())
	recordFilePayload(metrics.OpFileRead, int64(len(data)), len(events))
	return events, nil
}

// ReadEventsFile reads and validates the events file at path.
func ReadEventsFile(path string) ([]*ThermalEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		recordFileOperation(metrics.OpFileRead, "error", 0)
		return nil, fileIOError(err, "read_events_file", path)
	}
	defer f.Close()
	return DecodeEvents(f)
}
