package diagnosis

// AxisDef names one of the six scored dimensions.
type AxisDef struct {
	Key   string
	Label string
}

// Axes are the dimensions every diagnosis scores, in display order.
var Axes = []AxisDef{
	{Key: "riskTolerance", Label: "Risk tolerance"},
	{Key: "decisionSpeed", Label: "Decision speed"},
	{Key: "analyticalThinking", Label: "Analytical thinking"},
	{Key: "adaptability", Label: "Adaptability"},
	{Key: "stressManagement", Label: "Pressure resilience"},
	{Key: "resourceManagement", Label: "Resource management"},
}

func axisLabel(key string) (string, bool) {
	for _, a := range Axes {
		if a.Key == key {
			return a.Label, true
		}
	}
	return "", false
}
