package utils

import "featuremart/api/features"

func IsValidFeatureName(name string) bool {
	switch name {
	case features.TotalActivities, features.UniqueProductsViewed, features.PurchaseCount:
		return true
	default:
		return false
	}
}

// NormalizeFeatureNames applies the default (all three features) when the
// request names none, and otherwise reports the first unknown name.
func NormalizeFeatureNames(names []string) ([]string, string) {
	if len(names) == 0 {
		return features.AllFeatures(), ""
	}
	for _, name := range names {
		if !IsValidFeatureName(name) {
			return nil, name
		}
	}
	return names, ""
}
