package prediction

import (
	"unicode/utf16"

	"IEXCast/internal/domain/models"
)

var panel = [...]models.ModelProfile{
	{Name: models.ModelSARIMAX, Color: "#3b82f6", Category: models.CategoryStatistical},
	{Name: models.ModelRandomForest, Color: "#10b981", Category: models.CategoryEnsemble},
	{Name: models.ModelXGBoost, Color: "#f59e0b", Category: models.CategoryBoosting},
	{Name: models.ModelLightGBM, Color: "#8b5cf6", Category: models.CategoryBoosting},
	{Name: models.ModelCatBoost, Color: "#ec4899", Category: models.CategoryBoosting},
	{Name: models.ModelLSTM, Color: "#ef4444", Category: models.CategoryDeepLearning},
}

// Registry returns the model panel in its fixed order. The order is part of
// the result contract: jitter draws and winner tie-breaks follow it.
func Registry() []models.ModelProfile {
	out := make([]models.ModelProfile, len(panel))
	copy(out, panel[:])
	return out
}

// ModelNames returns the panel names in registry order.
func ModelNames() []models.ModelName {
	out := make([]models.ModelName, len(panel))
	for i, p := range panel {
		out[i] = p.Name
	}
	return out
}

// LookupProfile finds a panel entry by name.
func LookupProfile(name models.ModelName) (models.ModelProfile, bool) {
	for _, p := range panel {
		if p.Name == name {
			return p, true
		}
	}
	return models.ModelProfile{}, false
}

// modelSeed derives an independent stream seed for a model from the dataset
// seed: the sum of the name's UTF-16 code units is added with 32-bit wrap.
func modelSeed(datasetSeed uint32, name models.ModelName) uint32 {
	var sum uint32
	for _, u := range utf16.Encode([]rune(string(name))) {
		sum += uint32(u)
	}
	return datasetSeed + sum
}
