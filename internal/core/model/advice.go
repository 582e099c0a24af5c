package model

type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Advice struct {
	Summary         string    `json:"summary"`
	Articles        []Article `json:"articles"`
	Recommendations string    `json:"recommendations"`
}
