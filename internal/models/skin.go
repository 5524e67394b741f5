package models

type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

const MaxSkinNoteLength = 500

func (severity Severity) Valid() bool {
	return severity >= SeverityNone && severity <= SeveritySevere
}

type SkinRecord struct {
	Date    string   `json:"date"`
	Acne    Severity `json:"acne"`
	Dryness Severity `json:"dryness"`
	Note    string   `json:"note,omitempty"`
}
