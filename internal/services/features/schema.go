package features

import "CourtCast/internal/domain/models"

// SchemaVersion tags every vector and artifact produced against the field
// list below. Bump the version whenever the list changes; never reorder or
// remove fields within a version.
const SchemaVersion = "v1"

// fieldNames is the canonical field order. 27 fields: rankings, age,
// experience, earnings, physicals, titles, head-to-head, rolling form and
// match context encodings. Differentials are always competitor1 − competitor2.
var fieldNames = []string{
	"p1_ranking",
	"p2_ranking",
	"ranking_diff",
	"ranking_ratio",
	"p1_age",
	"p2_age",
	"age_diff",
	"p1_experience",
	"p2_experience",
	"experience_diff",
	"earnings_log_diff",
	"earnings_ratio",
	"height_diff",
	"weight_diff",
	"p1_majors",
	"p2_majors",
	"majors_diff",
	"h2h_total",
	"h2h_p1_wins",
	"h2h_p2_wins",
	"h2h_surface_p1_wins",
	"h2h_surface_p2_wins",
	"p1_recent_form",
	"p2_recent_form",
	"surface_code",
	"tier_code",
	"best_of_five",
}

// Schema returns the live extraction schema.
func Schema() models.FeatureSchema {
	f := make([]string, len(fieldNames))
	copy(f, fieldNames)
	return models.FeatureSchema{Version: SchemaVersion, Fields: f}
}
