package prediction

import (
	"testing"

	"IEXCast/internal/domain/models"
)

func TestRegistryOrder(t *testing.T) {
	want := []models.ModelName{
		models.ModelSARIMAX,
		models.ModelRandomForest,
		models.ModelXGBoost,
		models.ModelLightGBM,
		models.ModelCatBoost,
		models.ModelLSTM,
	}
	got := ModelNames()
	if len(got) != len(want) {
		t.Fatalf("expected %d models, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestRegistryReturnsCopy(t *testing.T) {
	r := Registry()
	r[0].Color = "#000000"
	if p, _ := LookupProfile(models.ModelSARIMAX); p.Color != "#3b82f6" {
		t.Fatalf("mutating the returned registry must not affect the panel")
	}
}

func TestLookupProfile(t *testing.T) {
	p, ok := LookupProfile(models.ModelLSTM)
	if !ok || p.Color != "#ef4444" || p.Category != models.CategoryDeepLearning {
		t.Fatalf("unexpected LSTM profile %+v (ok=%v)", p, ok)
	}
	if _, ok := LookupProfile("ARIMA"); ok {
		t.Fatalf("unknown model must not resolve")
	}
}

func TestModelSeed(t *testing.T) {
	cases := []struct {
		seed uint32
		name models.ModelName
		want uint32
	}{
		{0, models.ModelSARIMAX, 533},
		{0, models.ModelRandomForest, 1268},
		{100, models.ModelSARIMAX, 633},
		{0xFFFFFFFF, models.ModelSARIMAX, 532},
	}
	for _, tc := range cases {
		if got := modelSeed(tc.seed, tc.name); got != tc.want {
			t.Errorf("modelSeed(%d, %s) = %d, want %d", tc.seed, tc.name, got, tc.want)
		}
	}
}
