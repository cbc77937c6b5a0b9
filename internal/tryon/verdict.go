package tryon

// MinAuditScore is the inclusive lower bound a verdict's quality score must
// reach to be accepted. Policy constant, not tunable per call.
const MinAuditScore = 60.0

// AuditVerdict is the structured result of one audit call.
type AuditVerdict struct {
	ClothingChanged      bool     `json:"clothing_changed"`
	MatchesInputGarments bool     `json:"matches_input_garments"`
	VisualQualityScore   float64  `json:"visual_quality_score"`
	Issues               []string `json:"issues"`
	Summary              string   `json:"summary"`
}

// Accepted reports whether the verdict satisfies the acceptance policy:
// clothing changed, garments match, and the score meets MinAuditScore.
func (v *AuditVerdict) Accepted() bool {
	if v == nil {
		return false
	}
	return v.ClothingChanged && v.MatchesInputGarments && v.VisualQualityScore >= MinAuditScore
}
