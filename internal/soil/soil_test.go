package soil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

func TestRecommend_Bands(t *testing.T) {
	tests := []struct {
		name string
		ph   *float64
		want model.SoilBand
	}{
		{"unknown", nil, model.SoilBandNeutral},
		{"neutral 6.8", model.Float(6.8), model.SoilBandNeutral},
		{"lower bound 6.0 is neutral", model.Float(6.0), model.SoilBandNeutral},
		{"upper bound 7.5 is neutral", model.Float(7.5), model.SoilBandNeutral},
		{"acidic 5.9", model.Float(5.9), model.SoilBandAcidic},
		{"alkaline 7.6", model.Float(7.6), model.SoilBandAlkaline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.ph).Band)
		})
	}
}

func TestRecommend_Contents(t *testing.T) {
	acidic := Recommend(model.Float(5.2))
	assert.Equal(t, []string{"Blueberries", "Potatoes", "Sweet Potatoes"}, acidic.SuggestedCrops)
	assert.Contains(t, acidic.ActionPlan[0], "lime")

	alkaline := Recommend(model.Float(8.1))
	assert.Equal(t, []string{"Asparagus", "Beets", "Cabbage"}, alkaline.SuggestedCrops)
	assert.Contains(t, alkaline.ActionPlan[0], "sulfur")

	neutral := Recommend(nil)
	assert.Equal(t, []string{"Rice", "Wheat", "Maize", "Tomatoes"}, neutral.SuggestedCrops)
	assert.Len(t, neutral.ActionPlan, 3)
}

func TestRecommend_ReturnsCopies(t *testing.T) {
	a := Recommend(nil)
	a.SuggestedCrops[0] = "Sorghum"
	a.ActionPlan = append(a.ActionPlan, "extra")

	b := Recommend(nil)
	assert.Equal(t, "Rice", b.SuggestedCrops[0])
	assert.Len(t, b.ActionPlan, 3)
}

func TestSummary(t *testing.T) {
	s := Recommend(model.Float(5.0)).Summary()
	assert.Contains(t, s, "acidic")
	assert.Contains(t, s, "Blueberries")
	assert.Contains(t, s, "Add organic matter")
}
