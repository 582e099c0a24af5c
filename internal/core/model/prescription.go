package model

type Medicine struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

type PrescriptionResult struct {
	Medicines      []Medicine `json:"medicines"`
	Classification string     `json:"classification"`
	Confidence     float64    `json:"confidence"`
	IsPrescription bool       `json:"is_prescription"`
	ExtractedText  string     `json:"extracted_text"`
}
