package models

// FeatureSchema is the ordered list of named numeric fields a FeatureVector
// contains. Length and order are fixed per version and must match exactly
// between training and inference.
type FeatureSchema struct {
	Version string   `json:"version"`
	Fields  []string `json:"fields"`
}

// Equal reports whether two schemas have identical version, length and field
// order.
func (s FeatureSchema) Equal(o FeatureSchema) bool {
	if s.Version != o.Version || len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if s.Fields[i] != o.Fields[i] {
			return false
		}
	}
	return true
}

// FeatureVector is a fixed-length ordered numeric representation of a match,
// with values ordered per the schema it was extracted against.
type FeatureVector struct {
	SchemaVersion string    `json:"schema_version"`
	Values        []float64 `json:"values"`
}
