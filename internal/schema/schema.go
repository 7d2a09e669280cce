// Package schema validates and (de)serializes thermal event data at the
// system boundaries, independent of the storage layer. Its types mirror the
// persisted columns field for field; JSON keys are the SQL column names, so
// events files are interchangeable with the other site tools that read the
// database directly.
package schema

import (
	"encoding/json"
)

// String length caps matching the persisted column sizes.
const (
	maxStringLen      = 255
	maxShortStringLen = 64
	maxPolygonLen     = 256
)

// ThermalEvent is the transport form of a thermal event together with its
// per-frame instances.
type ThermalEvent struct {
	ID                   uint64  `json:"id,omitempty"`
	ExperimentID         int64   `json:"experiment_id"`
	LineOfSight          string  `json:"line_of_sight,omitempty"`
	Device               string  `json:"device"`
	Category             string  `json:"category,omitempty"`
	InitialTimestampNs   int64   `json:"initial_timestamp_ns"`
	FinalTimestampNs     int64   `json:"final_timestamp_ns"`
	DurationNs           int64   `json:"duration_ns"`
	Severity             *string `json:"severity,omitempty"`
	IsAutomaticDetection bool    `json:"is_automatic_detection"`
	Method               string  `json:"method"`
	Confidence           float64 `json:"confidence"`
	MaxTemperatureC      *int    `json:"max_temperature_C,omitempty"`
	MaxTTimestampNs      *int64  `json:"max_T_timestamp_ns,omitempty"`
	User                 string  `json:"user,omitempty"`
	Dataset              string  `json:"dataset,omitempty"`
	Comments             string  `json:"comments,omitempty"`
	Name                 string  `json:"name,omitempty"`
	AnalysisStatus       string  `json:"analysis_status,omitempty"`

	Instances []ThermalEventInstance `json:"instances"`
}

// UnmarshalJSON decodes an event, accepting the legacy payloads that keyed
// the instance list by the instance table name instead of "instances". When
// both keys are present the modern key wins.
func (e *ThermalEvent) UnmarshalJSON(data []byte) error {
	type Alias ThermalEvent
	aux := struct {
		*Alias
		LegacyInstances []ThermalEventInstance `json:"thermal_events_instances"`
	}{Alias: (*Alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(e.Instances) == 0 && len(aux.LegacyInstances) > 0 {
		e.Instances = aux.LegacyInstances
	}
	return nil
}

// ThermalEventInstance is the transport form of the footprint of a thermal
// event on a single infrared frame.
type ThermalEventInstance struct {
	ID             uint64 `json:"id,omitempty"`
	ThermalEventID uint64 `json:"thermal_event_id,omitempty"`
	TimestampNs    int64  `json:"timestamp_ns"`

	BboxX      int    `json:"bbox_x"`
	BboxY      int    `json:"bbox_y"`
	BboxWidth  int    `json:"bbox_width"`
	BboxHeight int    `json:"bbox_height"`
	Polygon    string `json:"polygon,omitempty"`

	PfcID *int64 `json:"pfc_id,omitempty"`

	MaxTemperatureC     *int     `json:"max_temperature_C,omitempty"`
	MinTemperatureC     *int     `json:"min_temperature_C,omitempty"`
	AverageTemperatureC *float64 `json:"average_temperature_C,omitempty"`
	OverheatingFactor   *float64 `json:"overheating_factor,omitempty"`

	MaxTWorldPositionX *float64 `json:"max_T_world_position_x_m,omitempty"`
	MaxTWorldPositionY *float64 `json:"max_T_world_position_y_m,omitempty"`
	MaxTWorldPositionZ *float64 `json:"max_T_world_position_z_m,omitempty"`
	MaxTImagePositionX *int     `json:"max_T_image_position_x,omitempty"`
	MaxTImagePositionY *int     `json:"max_T_image_position_y,omitempty"`

	MinTWorldPositionX *float64 `json:"min_T_world_position_x_m,omitempty"`
	MinTWorldPositionY *float64 `json:"min_T_world_position_y_m,omitempty"`
	MinTWorldPositionZ *float64 `json:"min_T_world_position_z_m,omitempty"`
	MinTImagePositionX *int     `json:"min_T_image_position_x,omitempty"`
	MinTImagePositionY *int     `json:"min_T_image_position_y,omitempty"`

	MaxOverheatingWorldPositionX *float64 `json:"max_overheating_world_position_x_m,omitempty"`
	MaxOverheatingWorldPositionY *float64 `json:"max_overheating_world_position_y_m,omitempty"`
	MaxOverheatingWorldPositionZ *float64 `json:"max_overheating_world_position_z_m,omitempty"`
	MaxOverheatingImagePositionX *int     `json:"max_overheating_image_position_x,omitempty"`
	MaxOverheatingImagePositionY *int     `json:"max_overheating_image_position_y,omitempty"`

	CentroidWorldPositionX *float64 `json:"centroid_world_position_x_m,omitempty"`
	CentroidWorldPositionY *float64 `json:"centroid_world_position_y_m,omitempty"`
	CentroidWorldPositionZ *float64 `json:"centroid_world_position_z_m,omitempty"`
	CentroidImagePositionX *float64 `json:"centroid_image_position_x,omitempty"`
	CentroidImagePositionY *float64 `json:"centroid_image_position_y,omitempty"`

	PixelArea    *int     `json:"pixel_area,omitempty"`
	PhysicalArea *float64 `json:"physical_area,omitempty"`
}

// StrikeLineDescriptor is the transport form of a strike line descriptor.
type StrikeLineDescriptor struct {
	ID                     uint64  `json:"id,omitempty"`
	ThermalEventInstanceID uint64  `json:"thermal_event_instance_id,omitempty"`
	SegmentedPoints        string  `json:"segmented_points"`
	Angle                  float64 `json:"angle"`
	Curve                  float64 `json:"curve"`
	Comments               string  `json:"comments,omitempty"`
	FlagRT                 bool    `json:"flag_RT"`
}
