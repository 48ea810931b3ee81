package standards

import (
	"github.com/health-attestation-server/internal/domain"
)

var inf = domain.Unbounded

// DefaultStandards is the reference table shipped with the service.
// PossibleRange is the physiologically plausible bound used for gating;
// bands are advisory clinical categories.
func DefaultStandards() []domain.MedicalStandard {
	return []domain.MedicalStandard{
		{
			TestName:      "Blood Glucose",
			Unit:          "mg/dL",
			PossibleRange: domain.StandardRange{Min: 20, Max: 600},
			Bands: map[string]domain.StandardRange{
				"normal_range":  {Min: 70, Max: 100},
				"prediabetic":   {Min: 100, Max: 125},
				"diabetic":      {Min: 126, Max: inf},
				"critical_low":  {Min: 0, Max: 40},
				"critical_high": {Min: 400, Max: inf},
			},
		},
		{
			TestName:      "Total Cholesterol",
			Unit:          "mg/dL",
			PossibleRange: domain.StandardRange{Min: 50, Max: 500},
			Bands: map[string]domain.StandardRange{
				"desirable":       {Min: 0, Max: 200},
				"borderline_high": {Min: 200, Max: 239},
				"high":            {Min: 240, Max: inf},
			},
		},
		{
			TestName:      "Temperature",
			Unit:          "°F",
			PossibleRange: domain.StandardRange{Min: 92, Max: 107},
			Bands: map[string]domain.StandardRange{
				"normal": {Min: 97, Max: 99},
				"fever":  {Min: 100.4, Max: 107},
			},
		},
		{
			TestName:      "Heart Rate",
			Unit:          "bpm",
			PossibleRange: domain.StandardRange{Min: 20, Max: 300},
			Bands: map[string]domain.StandardRange{
				"normal_resting": {Min: 60, Max: 100},
				"tachycardia":    {Min: 100, Max: inf},
				"bradycardia":    {Min: 0, Max: 60},
			},
		},
	}
}

// Default returns a catalog over DefaultStandards.
func Default() *Catalog {
	c, err := NewCatalog(DefaultStandards())
	if err != nil {
		panic(err)
	}
	return c
}
