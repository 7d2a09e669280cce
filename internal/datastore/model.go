// model.go defines the thermal event data model mapped to the site database
package datastore

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fusionvision/thermal-events-go/internal/geometry"
)

// Defaults applied to thermal events when the caller leaves the fields empty.
const (
	DefaultDataset        = "1"
	DefaultAnalysisStatus = "not analyzed"
)

// MaxPolygonStringLength is the capacity of the polygon columns. Polygons are
// simplified until their string encoding fits.
const MaxPolygonStringLength = 256

// ThermalEvent represents a thermal anomaly detected or annotated on the
// infrared data of one experiment, together with its per-frame instances.
type ThermalEvent struct {
	ID                   uint64  `gorm:"primaryKey"`
	ExperimentID         int64   `gorm:"index;not null;index:idx_thermal_events_experiment_window,priority:1"`
	LineOfSight          string  `gorm:"size:255;index"`
	Device               string  `gorm:"size:255;not null"`
	Category             string  `gorm:"size:255;index"`
	InitialTimestampNs   int64   `gorm:"index;not null;index:idx_thermal_events_experiment_window,priority:2"`
	FinalTimestampNs     int64   `gorm:"index;not null"`
	DurationNs           int64   `gorm:"not null"`
	Severity             *string `gorm:"size:64;index"`
	IsAutomaticDetection bool
	Method               string  `gorm:"size:255;not null"`
	Confidence           float64 `gorm:"not null;default:0"`
	MaxTemperatureC      *int    `gorm:"column:max_temperature_C"`
	MaxTTimestampNs      *int64  `gorm:"column:max_T_timestamp_ns"`
	User                 string  `gorm:"size:255;index"`
	Dataset              string  `gorm:"size:64;index"`
	Comments             string  `gorm:"size:255"`
	Name                 string  `gorm:"size:255"`
	AnalysisStatus       string  `gorm:"size:64;index"`

	Instances []ThermalEventInstance `gorm:"foreignKey:ThermalEventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Lookup associations, declared so that auto-migration emits the
	// foreign keys of the site schema. The composite reference restricts
	// events to category/line-of-sight pairs declared compatible.
	DeviceRef         *Device              `gorm:"foreignKey:Device;references:Name"`
	MethodRef         *Method              `gorm:"foreignKey:Method;references:Name"`
	SeverityRef       *Severity            `gorm:"foreignKey:Severity;references:Name"`
	UserRef           *User                `gorm:"foreignKey:User;references:Name"`
	AnalysisStatusRef *AnalysisStatus      `gorm:"foreignKey:AnalysisStatus;references:Name"`
	CompatibilityRef  *CategoryLineOfSight `gorm:"foreignKey:Category,LineOfSight;references:ThermalEventCategory,LineOfSight"`

	computed bool `gorm:"-"`
}

// TableName overrides the table name to match the site database schema.
func (ThermalEvent) TableName() string {
	return "thermal_events"
}

// NewThermalEvent returns an event with the default dataset and analysis
// status set. Computed fields stay zero until Compute is called.
func NewThermalEvent() *ThermalEvent {
	return &ThermalEvent{
		Dataset:        DefaultDataset,
		AnalysisStatus: DefaultAnalysisStatus,
	}
}

// BeforeCreate fills the categorical defaults so that rows created from bare
// struct literals still satisfy the lookup foreign keys.
func (e *ThermalEvent) BeforeCreate(tx *gorm.DB) error {
	if e.Dataset == "" {
		e.Dataset = DefaultDataset
	}
	if e.AnalysisStatus == "" {
		e.AnalysisStatus = DefaultAnalysisStatus
	}
	return nil
}

// AddInstance appends an instance to the event and marks the computed
// aggregates stale.
func (e *ThermalEvent) AddInstance(instance ThermalEventInstance) {
	e.Instances = append(e.Instances, instance)
	e.computed = false
}

// Compute derives the aggregate columns from the event's instances:
// instances are deduplicated by timestamp (the last one added wins) and
// sorted ascending, the initial/final timestamps and duration are set, and
// the maximum temperature and its timestamp are located (the earliest
// instance wins ties). Calling Compute again without adding instances is a
// no-op.
func (e *ThermalEvent) Compute() error {
	if e.computed {
		return nil
	}
	if len(e.Instances) == 0 {
		return validationError("thermal event has no instances", "instances", "empty")
	}

	byTimestamp := make(map[int64]ThermalEventInstance, len(e.Instances))
	for _, instance := range e.Instances {
		byTimestamp[instance.TimestampNs] = instance
	}
	timestamps := make([]int64, 0, len(byTimestamp))
	for ts := range byTimestamp {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	e.Instances = e.Instances[:0]
	var maxT *int
	var maxTTimestamp int64
	for _, ts := range timestamps {
		instance := byTimestamp[ts]
		e.Instances = append(e.Instances, instance)
		if instance.MaxTemperatureC != nil && (maxT == nil || *instance.MaxTemperatureC > *maxT) {
			t := *instance.MaxTemperatureC
			maxT = &t
			maxTTimestamp = instance.TimestampNs
		}
	}
	if maxT != nil {
		e.MaxTemperatureC = maxT
		ts := maxTTimestamp
		e.MaxTTimestampNs = &ts
	}

	e.InitialTimestampNs = timestamps[0]
	e.FinalTimestampNs = timestamps[len(timestamps)-1]
	e.DurationNs = e.FinalTimestampNs - e.InitialTimestampNs

	e.computed = true
	return nil
}

// Timestamps returns the timestamps of the event's instances in their
// current order.
func (e *ThermalEvent) Timestamps() []int64 {
	timestamps := make([]int64, len(e.Instances))
	for i := range e.Instances {
		timestamps[i] = e.Instances[i].TimestampNs
	}
	return timestamps
}

// SetDatasets stores a sorted, comma-separated dataset membership string,
// e.g. []int{5, 1, 3} becomes "1, 3, 5".
func (e *ThermalEvent) SetDatasets(ids []int) {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	e.Dataset = strings.Join(parts, ", ")
}

// ThermalEventInstance is the footprint of a thermal event on a single
// infrared frame: a timestamped polygon with its bounding box and optional
// temperature and position measurements.
type ThermalEventInstance struct {
	ID             uint64 `gorm:"primaryKey"`
	ThermalEventID uint64 `gorm:"index"`
	TimestampNs    int64  `gorm:"not null"`

	BboxX      int    `gorm:"not null"`
	BboxY      int    `gorm:"not null"`
	BboxWidth  int    `gorm:"not null"`
	BboxHeight int    `gorm:"not null"`
	Polygon    string `gorm:"size:256"`

	PfcID *int64 `gorm:"column:pfc_id"` // plasma facing component

	MaxTemperatureC     *int     `gorm:"column:max_temperature_C"`
	MinTemperatureC     *int     `gorm:"column:min_temperature_C"`
	AverageTemperatureC *float64 `gorm:"column:average_temperature_C"`
	OverheatingFactor   *float64

	MaxTWorldPositionX *float64 `gorm:"column:max_T_world_position_x_m"`
	MaxTWorldPositionY *float64 `gorm:"column:max_T_world_position_y_m"`
	MaxTWorldPositionZ *float64 `gorm:"column:max_T_world_position_z_m"`
	MaxTImagePositionX *int     `gorm:"column:max_T_image_position_x"`
	MaxTImagePositionY *int     `gorm:"column:max_T_image_position_y"`

	MinTWorldPositionX *float64 `gorm:"column:min_T_world_position_x_m"`
	MinTWorldPositionY *float64 `gorm:"column:min_T_world_position_y_m"`
	MinTWorldPositionZ *float64 `gorm:"column:min_T_world_position_z_m"`
	MinTImagePositionX *int     `gorm:"column:min_T_image_position_x"`
	MinTImagePositionY *int     `gorm:"column:min_T_image_position_y"`

	MaxOverheatingWorldPositionX *float64 `gorm:"column:max_overheating_world_position_x_m"`
	MaxOverheatingWorldPositionY *float64 `gorm:"column:max_overheating_world_position_y_m"`
	MaxOverheatingWorldPositionZ *float64 `gorm:"column:max_overheating_world_position_z_m"`
	MaxOverheatingImagePositionX *int     `gorm:"column:max_overheating_image_position_x"`
	MaxOverheatingImagePositionY *int     `gorm:"column:max_overheating_image_position_y"`

	CentroidWorldPositionX *float64 `gorm:"column:centroid_world_position_x_m"`
	CentroidWorldPositionY *float64 `gorm:"column:centroid_world_position_y_m"`
	CentroidWorldPositionZ *float64 `gorm:"column:centroid_world_position_z_m"`
	CentroidImagePositionX *float64 `gorm:"column:centroid_image_position_x"`
	CentroidImagePositionY *float64 `gorm:"column:centroid_image_position_y"`

	PixelArea    *int
	PhysicalArea *float64

	Descriptors []StrikeLineDescriptor `gorm:"foreignKey:ThermalEventInstanceID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName overrides the table name to match the site database schema.
func (ThermalEventInstance) TableName() string {
	return "thermal_events_instances"
}

// NewInstanceFromRectangle creates an instance covering the given rectangle.
// The polygon column stores the rectangle's four corners.
func NewInstanceFromRectangle(rect geometry.Rect, timestampNs int64) ThermalEventInstance {
	return ThermalEventInstance{
		TimestampNs: timestampNs,
		BboxX:       rect.X,
		BboxY:       rect.Y,
		BboxWidth:   rect.Width,
		BboxHeight:  rect.Height,
		Polygon:     geometry.PolygonToString(geometry.RectOutline(rect)),
	}
}

// NewInstanceFromPolygon creates an instance from a detection polygon. The
// polygon is simplified until its string encoding fits the polygon column,
// duplicate vertices are dropped, and the bounding box is derived from the
// polygon (exactly when it is rectangular, from its bounds otherwise).
func NewInstanceFromPolygon(polygon geometry.Polygon, timestampNs int64) (ThermalEventInstance, error) {
	if len(polygon) == 0 {
		return ThermalEventInstance{}, validationError("instance polygon is empty", "polygon", "empty")
	}

	simplified := geometry.SimplifyToEncodedLimit(polygon, MaxPolygonStringLength)
	simplified = geometry.UniqueVertices(simplified)

	rect, ok := geometry.AsRectangle(simplified)
	if !ok {
		rect = geometry.BoundingRect(simplified)
	}

	return ThermalEventInstance{
		TimestampNs: timestampNs,
		BboxX:       rect.X,
		BboxY:       rect.Y,
		BboxWidth:   rect.Width,
		BboxHeight:  rect.Height,
		Polygon:     geometry.PolygonToString(simplified),
	}, nil
}

// Bbox returns the instance bounding box.
func (i *ThermalEventInstance) Bbox() geometry.Rect {
	return geometry.Rect{X: i.BboxX, Y: i.BboxY, Width: i.BboxWidth, Height: i.BboxHeight}
}

// Outline returns the instance polygon, falling back to the bounding box
// corners when no polygon is stored.
func (i *ThermalEventInstance) Outline() (geometry.Polygon, error) {
	polygon, err := geometry.StringToPolygon(i.Polygon)
	if err != nil {
		return nil, err
	}
	if len(polygon) > 0 {
		return polygon, nil
	}
	return geometry.RectOutline(i.Bbox()), nil
}

// StrikeLineDescriptor describes the strike line observed within a thermal
// event instance on the divertor targets.
type StrikeLineDescriptor struct {
	ID                     uint64  `gorm:"primaryKey"`
	ThermalEventInstanceID uint64  `gorm:"index"`
	SegmentedPoints        string  `gorm:"size:256;not null"`
	Angle                  float64 `gorm:"not null"`
	Curve                  float64 `gorm:"not null"`
	Comments               string  `gorm:"size:255"`
	FlagRT                 bool    `gorm:"column:flag_RT"` // computed by the real-time system

	InstanceRef *ThermalEventInstance `gorm:"foreignKey:ThermalEventInstanceID;references:ID"`
}

// TableName overrides the table name to match the site database schema.
func (StrikeLineDescriptor) TableName() string {
	return "strike_line_descriptors"
}

// NewStrikeLineDescriptor creates a descriptor for the given instance with
// the segmented points stored in the polygon string encoding.
func NewStrikeLineDescriptor(instanceID uint64, points geometry.Polygon, angle, curve float64) *StrikeLineDescriptor {
	return &StrikeLineDescriptor{
		ThermalEventInstanceID: instanceID,
		SegmentedPoints:        geometry.PolygonToString(points),
		Angle:                  angle,
		Curve:                  curve,
	}
}

// SegmentedPointsList returns the segmented points decoded from their string
// encoding.
func (d *StrikeLineDescriptor) SegmentedPointsList() (geometry.Polygon, error) {
	return geometry.StringToPolygon(d.SegmentedPoints)
}

// Device is a lookup row for the infrared acquisition devices.
type Device struct {
	Name        string `gorm:"primaryKey;size:255" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (Device) TableName() string {
	return "devices"
}

// Method is a lookup row for the detection and annotation methods.
type Method struct {
	Name        string `gorm:"primaryKey;size:255" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (Method) TableName() string {
	return "methods"
}

// Severity is a lookup row for the thermal event severity scale.
type Severity struct {
	Name        string `gorm:"primaryKey;size:64" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (Severity) TableName() string {
	return "severity_types"
}

// User is a lookup row naming a person allowed to write thermal events.
type User struct {
	Name string `gorm:"primaryKey;size:255" json:"name"`
}

// TableName overrides the table name to match the site database schema.
func (User) TableName() string {
	return "users"
}

// LineOfSight is a lookup row for the camera lines of sight.
type LineOfSight struct {
	Name        string `gorm:"primaryKey;size:255" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (LineOfSight) TableName() string {
	return "lines_of_sight"
}

// Category is a lookup row for the thermal event categories.
type Category struct {
	Name        string `gorm:"primaryKey;size:255" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (Category) TableName() string {
	return "thermal_event_categories"
}

// CategoryLineOfSight declares that a category may occur on a line of sight.
// The pairs form the compatibility matrix referenced by thermal events.
type CategoryLineOfSight struct {
	ThermalEventCategory string `gorm:"primaryKey;size:255" json:"thermal_event_category"`
	LineOfSight          string `gorm:"primaryKey;size:255" json:"line_of_sight"`

	CategoryRef    *Category    `gorm:"foreignKey:ThermalEventCategory;references:Name" json:"-"`
	LineOfSightRef *LineOfSight `gorm:"foreignKey:LineOfSight;references:Name" json:"-"`
}

// TableName overrides the table name to match the site database schema.
func (CategoryLineOfSight) TableName() string {
	return "thermal_event_category_lines_of_sight"
}

// AnalysisStatus is a lookup row for the analysis workflow states.
type AnalysisStatus struct {
	Name        string `gorm:"primaryKey;size:64" json:"name"`
	Description string `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema,
// which keeps this table name singular.
func (AnalysisStatus) TableName() string {
	return "analysis_status"
}

// Dataset groups thermal events into annotation campaigns. Events reference
// datasets through their comma-separated dataset column; dataset 1 is the
// catch-all dataset every event belongs to by default.
type Dataset struct {
	ID             uint64    `gorm:"primaryKey" json:"id,omitempty"`
	CreationDate   time.Time `gorm:"not null" json:"creation_date"`
	AnnotationType string    `gorm:"size:32;not null" json:"annotation_type"`
	Description    string    `gorm:"size:255" json:"description,omitempty"`
}

// TableName overrides the table name to match the site database schema.
func (Dataset) TableName() string {
	return "datasets"
}

// ParentChildRelationship links two thermal events across a split or merge:
// the parent event ends where its children begin. One event may have several
// parents and several children.
type ParentChildRelationship struct {
	ID          uint64 `gorm:"primaryKey"`
	Parent      uint64 `gorm:"index;not null"`
	Child       uint64 `gorm:"index;not null"`
	TimestampNs int64

	ParentRef *ThermalEvent `gorm:"foreignKey:Parent;references:ID;constraint:OnDelete:CASCADE"`
	ChildRef  *ThermalEvent `gorm:"foreignKey:Child;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name to match the site database schema.
func (ParentChildRelationship) TableName() string {
	return "parent_child_relationships"
}

// ProcessedMovie records that a detection pass has covered the infrared
// movie of one experiment on one line of sight, so reprocessing can be
// skipped.
type ProcessedMovie struct {
	ID           uint64 `gorm:"primaryKey"`
	ExperimentID int64  `gorm:"index;not null"`
	LineOfSight  string `gorm:"size:255"`
	Method       string `gorm:"size:255"`
	ProcessedAt  time.Time

	LineOfSightRef *LineOfSight `gorm:"foreignKey:LineOfSight;references:Name"`
	MethodRef      *Method      `gorm:"foreignKey:Method;references:Name"`
}

// TableName overrides the table name to match the site database schema.
func (ProcessedMovie) TableName() string {
	return "processed_movies"
}
