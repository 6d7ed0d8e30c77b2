package building

import (
	"go.uber.org/zap"
)

// Info holds the values a subsector shares with its technologies for one
// period, such as floor space and average insulation.
type Info map[string]float64

// Double returns the value stored under key. A missing key yields 0 and is
// logged when mustExist is true.
func (i Info) Double(logger *zap.Logger, key string, mustExist bool) float64 {
	v, ok := i[key]
	if !ok && mustExist && logger != nil {
		logger.Error("subsector info value does not exist",
			zap.String("op", "building.Info.Double"),
			zap.String("key", key),
		)
	}
	return v
}
