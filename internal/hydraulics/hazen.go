package hydraulics

import "math"

const (
	hazenCoefficient = 10.67
	flowExponent     = 1.852
	diameterExponent = 4.87

	secondsPerHour = 3600.0
	mmPerMetre     = 1000.0
)

// HeadLoss returns the Hazen-Williams friction loss (m) of a pipe of length
// m and diameter m carrying flow m³/s with roughness coefficient c
func HeadLoss(length, flow, diameter, c float64) float64 {
	if flow <= 0 || diameter <= 0 {
		return 0
	}
	return hazenCoefficient * length * math.Pow(flow, flowExponent) /
		(math.Pow(c, flowExponent) * math.Pow(diameter, diameterExponent))
}

// Velocity returns the mean velocity (m/s) of flow m³/s in a pipe of diameter m
func Velocity(flow, diameter float64) float64 {
	if flow <= 0 || diameter <= 0 {
		return 0
	}
	return flow / (math.Pi * diameter * diameter / 4)
}

// RequiredDiameter returns the diameter (m) that carries flow m³/s at maxVelocity
func RequiredDiameter(flow, maxVelocity float64) float64 {
	if flow <= 0 || maxVelocity <= 0 {
		return 0
	}
	return math.Sqrt(4 * flow / (math.Pi * maxVelocity))
}

// PerSecond converts m³/h to m³/s
func PerSecond(flow float64) float64 {
	return flow / secondsPerHour
}

// Metres converts mm to m
func Metres(mm float64) float64 {
	return mm / mmPerMetre
}
