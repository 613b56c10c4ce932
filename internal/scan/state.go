package scan

// State is a step in the lifecycle of one scan submission
type State int

const (
	Idle State = iota
	ImageSelected
	Uploading
	ClassificationReceived
	RecommendationResolving
	Complete
	Error
)

var stateNames = [...]string{
	Idle:                    "idle",
	ImageSelected:           "image_selected",
	Uploading:               "uploading",
	ClassificationReceived:  "classification_received",
	RecommendationResolving: "recommendation_resolving",
	Complete:                "complete",
	Error:                   "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
