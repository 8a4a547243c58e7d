package domain

// Parameter names one tracked per-cell time series produced by the upstream
// growth model.
type Parameter string

const (
	SalinityFactor     Parameter = "salinity_factor"
	NutrientFactor     Parameter = "nutrient_factor"
	IlluminationFactor Parameter = "illumination_factor"
	TemperatureFactor  Parameter = "temp_factor"
	NitrateSubfactor   Parameter = "nitrate_subfactor"
	AmmoniumSubfactor  Parameter = "ammonium_subfactor"
	PhosphateSubfactor Parameter = "phosphate_subfactor"
	GrowthRate         Parameter = "seaweed_growth_rate"
)

// Parameters lists every tracked parameter. GrowthRate is the series the
// clusters are computed from.
var Parameters = []Parameter{
	SalinityFactor,
	NutrientFactor,
	IlluminationFactor,
	TemperatureFactor,
	NitrateSubfactor,
	AmmoniumSubfactor,
	PhosphateSubfactor,
	GrowthRate,
}

// MainFactors are the parameters summarized per cluster in reports.
var MainFactors = []Parameter{
	SalinityFactor,
	NutrientFactor,
	IlluminationFactor,
	TemperatureFactor,
	GrowthRate,
}

// NutrientSubfactors are compared against each other in reports.
var NutrientSubfactors = []Parameter{
	NitrateSubfactor,
	AmmoniumSubfactor,
	PhosphateSubfactor,
}

// Valid reports whether p is one of the tracked parameters.
func (p Parameter) Valid() bool {
	for _, q := range Parameters {
		if p == q {
			return true
		}
	}
	return false
}

func (p Parameter) String() string { return string(p) }
