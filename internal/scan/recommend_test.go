package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/franckalain/riceguard/internal/models"
)

func TestRecommendationKey(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"brown_spot", "brown_spot"},
		{"healthy", "healthy"},
		{"Brown Spot", "brown_spot"},
		{"Bacterial  Leaf\tBlight", "bacterial_leaf_blight"},
		{"leaf-smut", "leaf-smut"},
		{"Leaf_Smut", "leaf_smut"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendationKey(tt.label))
		})
	}
}

func TestTitleCaseLabel(t *testing.T) {
	assert.Equal(t, "Leaf Smut", TitleCaseLabel("leaf_smut"))
	assert.Equal(t, "Bacterial Leaf Blight", TitleCaseLabel("bacterial_leaf_blight"))
	assert.Equal(t, "Healthy", TitleCaseLabel("Healthy"))
}

func TestFallbackRecommendation(t *testing.T) {
	smut := FallbackRecommendation("Leaf Smut")
	assert.Contains(t, smut, "resistant rice varieties")
	assert.Equal(t, smut, FallbackRecommendation("leaf_smut"))
	assert.NotEmpty(t, FallbackRecommendation("healthy"))
	assert.Empty(t, FallbackRecommendation("Rice Blast"))
}

func TestDisplayOf(t *testing.T) {
	d := DisplayOf(models.ScanResult{
		DiseaseLabel: "brown_spot",
		Confidence:   models.NewConfidence(0.876),
		CapturedAt:   "2024-02-02T08:00:00Z",
	})
	assert.Equal(t, models.DisplayResult{
		Disease:        "brown_spot",
		Confidence:     "87.6",
		Recommendation: NoRecommendation,
		Timestamp:      "2024-02-02T08:00:00Z",
	}, d)
}
