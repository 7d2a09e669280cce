// Package schema - conversion between transport and persisted forms
package schema

import (
	"github.com/fusionvision/thermal-events-go/internal/datastore"
)

// clonePtr copies an optional scalar so the converted value shares no
// memory with its source.
func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// FromModel converts a persisted thermal event, including its instances,
// into its transport form. Lookup associations are not carried over.
func FromModel(event *datastore.ThermalEvent) *ThermalEvent {
	if event == nil {
		return nil
	}
	out := &ThermalEvent{
		ID:                   event.ID,
		ExperimentID:         event.ExperimentID,
		LineOfSight:          event.LineOfSight,
		Device:               event.Device,
		Category:             event.Category,
		InitialTimestampNs:   event.InitialTimestampNs,
		FinalTimestampNs:     event.FinalTimestampNs,
		DurationNs:           event.DurationNs,
		Severity:             clonePtr(event.Severity),
		IsAutomaticDetection: event.IsAutomaticDetection,
		Method:               event.Method,
		Confidence:           event.Confidence,
		MaxTemperatureC:      clonePtr(event.MaxTemperatureC),
		MaxTTimestampNs:      clonePtr(event.MaxTTimestampNs),
		User:                 event.User,
		Dataset:              event.Dataset,
		Comments:             event.Comments,
		Name:                 event.Name,
		AnalysisStatus:       event.AnalysisStatus,
	}
	if len(event.Instances) > 0 {
		out.Instances = make([]ThermalEventInstance, len(event.Instances))
		for i := range event.Instances {
			out.Instances[i] = *FromModelInstance(&event.Instances[i])
		}
	}
	return out
}

// ToModel validates the event and converts it into its persisted form.
// Events that fail validation are rejected with the full field error list.
func (e *ThermalEvent) ToModel() (*datastore.ThermalEvent, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	model := &datastore.ThermalEvent{
		ID:                   e.ID,
		ExperimentID:         e.ExperimentID,
		LineOfSight:          e.LineOfSight,
		Device:               e.Device,
		Category:             e.Category,
		InitialTimestampNs:   e.InitialTimestampNs,
		FinalTimestampNs:     e.FinalTimestampNs,
		DurationNs:           e.DurationNs,
		Severity:             clonePtr(e.Severity),
		IsAutomaticDetection: e.IsAutomaticDetection,
		Method:               e.Method,
		Confidence:           e.Confidence,
		MaxTemperatureC:      clonePtr(e.MaxTemperatureC),
		MaxTTimestampNs:      clonePtr(e.MaxTTimestampNs),
		User:                 e.User,
		Dataset:              e.Dataset,
		Comments:             e.Comments,
		Name:                 e.Name,
		AnalysisStatus:       e.AnalysisStatus,
	}
	if len(e.Instances) > 0 {
		model.Instances = make([]datastore.ThermalEventInstance, len(e.Instances))
		for i := range e.Instances {
			model.Instances[i] = e.Instances[i].toModel()
		}
	}
	return model, nil
}

// FromModelInstance converts a persisted instance into its transport form.
func FromModelInstance(instance *datastore.ThermalEventInstance) *ThermalEventInstance {
	if instance == nil {
		return nil
	}
	return &ThermalEventInstance{
		ID:             instance.ID,
		ThermalEventID: instance.ThermalEventID,
		TimestampNs:    instance.TimestampNs,

		BboxX:      instance.BboxX,
		BboxY:      instance.BboxY,
		BboxWidth:  instance.BboxWidth,
		BboxHeight: instance.BboxHeight,
		Polygon:    instance.Polygon,

		PfcID: clonePtr(instance.PfcID),

		MaxTemperatureC:     clonePtr(instance.MaxTemperatureC),
		MinTemperatureC:     clonePtr(instance.MinTemperatureC),
		AverageTemperatureC: clonePtr(instance.AverageTemperatureC),
		OverheatingFactor:   clonePtr(instance.OverheatingFactor),

		MaxTWorldPositionX: clonePtr(instance.MaxTWorldPositionX),
		MaxTWorldPositionY: clonePtr(instance.MaxTWorldPositionY),
		MaxTWorldPositionZ: clonePtr(instance.MaxTWorldPositionZ),
		MaxTImagePositionX: clonePtr(instance.MaxTImagePositionX),
		MaxTImagePositionY: clonePtr(instance.MaxTImagePositionY),

		MinTWorldPositionX: clonePtr(instance.MinTWorldPositionX),
		MinTWorldPositionY: clonePtr(instance.MinTWorldPositionY),
		MinTWorldPositionZ: clonePtr(instance.MinTWorldPositionZ),
		MinTImagePositionX: clonePtr(instance.MinTImagePositionX),
		MinTImagePositionY: clonePtr(instance.MinTImagePositionY),

		MaxOverheatingWorldPositionX: clonePtr(instance.MaxOverheatingWorldPositionX),
		MaxOverheatingWorldPositionY: clonePtr(instance.MaxOverheatingWorldPositionY),
		MaxOverheatingWorldPositionZ: clonePtr(instance.MaxOverheatingWorldPositionZ),
		MaxOverheatingImagePositionX: clonePtr(instance.MaxOverheatingImagePositionX),
		MaxOverheatingImagePositionY: clonePtr(instance.MaxOverheatingImagePositionY),

		CentroidWorldPositionX: clonePtr(instance.CentroidWorldPositionX),
		CentroidWorldPositionY: clonePtr(instance.CentroidWorldPositionY),
		CentroidWorldPositionZ: clonePtr(instance.CentroidWorldPositionZ),
		CentroidImagePositionX: clonePtr(instance.CentroidImagePositionX),
		CentroidImagePositionY: clonePtr(instance.CentroidImagePositionY),

		PixelArea:    clonePtr(instance.PixelArea),
		PhysicalArea: clonePtr(instance.PhysicalArea),
	}
}

// ToModel validates a standalone instance and converts it into its
// persisted form.
func (i *ThermalEventInstance) ToModel() (*datastore.ThermalEventInstance, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	model := i.toModel()
	return &model, nil
}

func (i *ThermalEventInstance) toModel() datastore.ThermalEventInstance {
	return datastore.ThermalEventInstance{
		ID:             i.ID,
		ThermalEventID: i.ThermalEventID,
		TimestampNs:    i.TimestampNs,

		BboxX:      i.BboxX,
		BboxY:      i.BboxY,
		BboxWidth:  i.BboxWidth,
		BboxHeight: i.BboxHeight,
		Polygon:    i.Polygon,

		PfcID: clonePtr(i.PfcID),

		MaxTemperatureC:     clonePtr(i.MaxTemperatureC),
		MinTemperatureC:     clonePtr(i.MinTemperatureC),
		AverageTemperatureC: clonePtr(i.AverageTemperatureC),
		OverheatingFactor:   clonePtr(i.OverheatingFactor),

		MaxTWorldPositionX: clonePtr(i.MaxTWorldPositionX),
		MaxTWorldPositionY: clonePtr(i.MaxTWorldPositionY),
		MaxTWorldPositionZ: clonePtr(i.MaxTWorldPositionZ),
		MaxTImagePositionX: clonePtr(i.MaxTImagePositionX),
		MaxTImagePositionY: clonePtr(i.MaxTImagePositionY),

		MinTWorldPositionX: clonePtr(i.MinTWorldPositionX),
		MinTWorldPositionY: clonePtr(i.MinTWorldPositionY),
		MinTWorldPositionZ: clonePtr(i.MinTWorldPositionZ),
		MinTImagePositionX: clonePtr(i.MinTImagePositionX),
		MinTImagePositionY: clonePtr(i.MinTImagePositionY),

		MaxOverheatingWorldPositionX: clonePtr(i.MaxOverheatingWorldPositionX),
		MaxOverheatingWorldPositionY: clonePtr(i.MaxOverheatingWorldPositionY),
		MaxOverheatingWorldPositionZ: clonePtr(i.MaxOverheatingWorldPositionZ),
		MaxOverheatingImagePositionX: clonePtr(i.MaxOverheatingImagePositionX),
		MaxOverheatingImagePositionY: clonePtr(i.MaxOverheatingImagePositionY),

		CentroidWorldPositionX: clonePtr(i.CentroidWorldPositionX),
		CentroidWorldPositionY: clonePtr(i.CentroidWorldPositionY),
		CentroidWorldPositionZ: clonePtr(i.CentroidWorldPositionZ),
		CentroidImagePositionX: clonePtr(i.CentroidImagePositionX),
		CentroidImagePositionY: clonePtr(i.CentroidImagePositionY),

		PixelArea:    clonePtr(i.PixelArea),
		PhysicalArea: clonePtr(i.PhysicalArea),
	}
}

// FromModelDescriptor converts a persisted strike line descriptor into its
// transport form. The instance association is not carried over.
func FromModelDescriptor(d *datastore.StrikeLineDescriptor) *StrikeLineDescriptor {
	if d == nil {
		return nil
	}
	return &StrikeLineDescriptor{
		ID:                     d.ID,
		ThermalEventInstanceID: d.ThermalEventInstanceID,
		SegmentedPoints:        d.SegmentedPoints,
		Angle:                  d.Angle,
		Curve:                  d.Curve,
		Comments:               d.Comments,
		FlagRT:                 d.FlagRT,
	}
}

// ToModel validates the descriptor and converts it into its persisted form.
func (d *StrikeLineDescriptor) ToModel() (*datastore.StrikeLineDescriptor, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &datastore.StrikeLineDescriptor{
		ID:                     d.ID,
		ThermalEventInstanceID: d.ThermalEventInstanceID,
		SegmentedPoints:        d.SegmentedPoints,
		Angle:                  d.Angle,
		Curve:                  d.Curve,
		Comments:               d.Comments,
		FlagRT:                 d.FlagRT,
	}, nil
}
