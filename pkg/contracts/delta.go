package contracts

// DimensionDelta is the signed change of one confidence dimension between
// two report versions.
type DimensionDelta struct {
	Dimension string  `json:"dimension"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
	Delta     float64 `json:"delta"`
}

// ReportDelta is the version-over-version regression view of two
// QualityReports for the same artifact.
type ReportDelta struct {
	CaseID      string `json:"case_id"`
	ArtifactID  string `json:"artifact_id"`
	FromVersion int    `json:"from_version"`
	ToVersion   int    `json:"to_version"`

	ConfidenceDelta float64          `json:"confidence_delta"`
	Dimensions      []DimensionDelta `json:"dimensions"`

	AddedBiasFlags    []BiasFlag      `json:"added_bias_flags"`
	RemovedBiasFlags  []BiasFlag      `json:"removed_bias_flags"`
	AddedBlindspots   []BlindspotItem `json:"added_blindspots"`
	RemovedBlindspots []BlindspotItem `json:"removed_blindspots"`

	DiversityDelta float64 `json:"diversity_delta"`

	FromRisk   RiskLevel         `json:"from_risk"`
	ToRisk     RiskLevel         `json:"to_risk"`
	FromStatus PublicationStatus `json:"from_status"`
	ToStatus   PublicationStatus `json:"to_status"`
}

// Regressed reports whether the newer version is strictly worse on any axis
// a reviewer watches: confidence dropped, or a new bias flag or blindspot
// appeared.
func (d *ReportDelta) Regressed() bool {
	return d.ConfidenceDelta < 0 || len(d.AddedBiasFlags) > 0 || len(d.AddedBlindspots) > 0
}
