package scan

import (
	"regexp"
	"strings"

	"github.com/franckalain/riceguard/internal/models"
)

// NoRecommendation is shown when neither the backend nor the local table
// has guidance for a label
const NoRecommendation = "No recommendation available."

var fallbackRecommendations = map[string]string{
	"Bacterial Leaf Blight": "Remove infected plants immediately and avoid excessive nitrogen fertilizer. Apply copper-based bactericides and ensure proper field drainage to prevent spread.",
	"Brown Spot":            "Apply balanced fertilizer with potassium and nitrogen. Use fungicides like Mancozeb or Tricyclazole if infection persists. Ensure proper spacing and water management to reduce humidity.",
	"Leaf Smut":             "Use resistant rice varieties and practice crop rotation. Avoid high nitrogen levels and maintain proper field sanitation. Apply appropriate fungicides if the infection is severe.",
	"Healthy":               "Your rice crop appears healthy. Continue good farming practices, balanced fertilization, proper irrigation, and pest monitoring.",
}

var (
	canonicalKey = regexp.MustCompile(`^[a-z_]+$`)
	whitespace   = regexp.MustCompile(`\s+`)
	wordStart    = regexp.MustCompile(`\b\w`)
)

// RecommendationKey normalizes a classifier label for lookup:
// "Brown Spot" -> "brown_spot". Labels already in snake_case are kept.
func RecommendationKey(label string) string {
	if canonicalKey.MatchString(label) {
		return label
	}
	return whitespace.ReplaceAllString(strings.ToLower(label), "_")
}

// TitleCaseLabel rebuilds a display label from a key: "leaf_smut" -> "Leaf Smut"
func TitleCaseLabel(label string) string {
	spaced := strings.ReplaceAll(label, "_", " ")
	return wordStart.ReplaceAllStringFunc(spaced, strings.ToUpper)
}

// FallbackRecommendation looks label up in the built-in table, first as is
// and then title-cased. It returns "" when neither matches.
func FallbackRecommendation(label string) string {
	if text, ok := fallbackRecommendations[label]; ok {
		return text
	}
	return fallbackRecommendations[TitleCaseLabel(label)]
}

// DisplayOf formats a completed scan for the user
func DisplayOf(r models.ScanResult) models.DisplayResult {
	text := r.RecommendationText
	if text == "" {
		text = NoRecommendation
	}
	return models.DisplayResult{
		Disease:        r.DiseaseLabel,
		Confidence:     r.Confidence.Display(),
		Recommendation: text,
		Timestamp:      r.CapturedAt,
	}
}
