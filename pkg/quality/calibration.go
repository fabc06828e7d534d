package quality

// Calibration adjusts raw confidence for one backend's known biases.
// Calibrations live in a static map keyed by backend name with an explicit
// "default" entry; lookup never fails.
type Calibration struct {
	// BaseMultiplier scales raw confidence (fluent backends overstate certainty).
	BaseMultiplier float64 `yaml:"base_multiplier"`

	// TemperatureSlope is subtracted per unit of sampling temperature.
	TemperatureSlope float64 `yaml:"temperature_slope"`

	// FinishReasonOffsets adjusts per finish reason ("stop", "length",
	// "content_filter"). Unlisted reasons contribute zero.
	FinishReasonOffsets map[string]float64 `yaml:"finish_reason_offsets"`

	// Min and Max clamp the calibrated confidence.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultCalibrationKey is the fallback entry every calibration table must have.
const DefaultCalibrationKey = "default"

// DefaultCalibrations returns the tuned per-backend calibration table.
// Values are empirical defaults; hosts override them via configuration.
func DefaultCalibrations() map[string]Calibration {
	return map[string]Calibration{
		"openai": {
			BaseMultiplier:   1.00,
			TemperatureSlope: 0.08,
			FinishReasonOffsets: map[string]float64{
				"stop":           0.02,
				"length":         -0.05,
				"content_filter": -0.15,
			},
			Min: 0.05,
			Max: 0.98,
		},
		"anthropic": {
			BaseMultiplier:   0.98,
			TemperatureSlope: 0.06,
			FinishReasonOffsets: map[string]float64{
				"stop":           0.02,
				"length":         -0.05,
				"content_filter": -0.15,
			},
			Min: 0.05,
			Max: 0.97,
		},
		"ollama": {
			// Local models tend to be overconfident at high temperature.
			BaseMultiplier:   0.92,
			TemperatureSlope: 0.10,
			FinishReasonOffsets: map[string]float64{
				"stop":   0.01,
				"length": -0.08,
			},
			Min: 0.05,
			Max: 0.92,
		},
		DefaultCalibrationKey: {
			BaseMultiplier:   0.95,
			TemperatureSlope: 0.08,
			FinishReasonOffsets: map[string]float64{
				"stop":   0.01,
				"length": -0.05,
			},
			Min: 0.05,
			Max: 0.95,
		},
	}
}

// lookupCalibration resolves the calibration for a backend, falling back to
// the default entry, then to a permissive identity calibration if the table
// is missing its default.
func lookupCalibration(table map[string]Calibration, backend string) Calibration {
	if cal, ok := table[backend]; ok {
		return cal
	}
	if cal, ok := table[DefaultCalibrationKey]; ok {
		return cal
	}
	return Calibration{BaseMultiplier: 1.0, Min: 0, Max: 1}
}

// apply calibrates a raw confidence value.
func (c Calibration) apply(raw, temperature float64, finishReason string) float64 {
	calibrated := raw * c.BaseMultiplier
	calibrated -= temperature * c.TemperatureSlope
	if offset, ok := c.FinishReasonOffsets[finishReason]; ok {
		calibrated += offset
	}
	if calibrated < c.Min {
		calibrated = c.Min
	}
	if calibrated > c.Max {
		calibrated = c.Max
	}
	return calibrated
}
