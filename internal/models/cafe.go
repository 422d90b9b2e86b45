package models

// Review is a single generated review attached to a cafe profile.
type Review struct {
	ReviewerName string  `json:"reviewerName"`
	Rating       float64 `json:"rating"`
	Text         string  `json:"text"`
	Date         string  `json:"date"`
	Likes        int     `json:"likes"`
	AvatarColor  string  `json:"avatarColor,omitempty"`
}

// CafeProfile is the structured cafe profile produced by the generation API.
// PosterPrompt is the visual description fed to the poster image model.
type CafeProfile struct {
	Name            string   `json:"name"`
	Location        string   `json:"location"`
	YearEstablished string   `json:"yearEstablished"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	AverageRating   float64  `json:"averageRating"`
	PosterPrompt    string   `json:"posterPrompt"`
	Reviews         []Review `json:"reviews"`
}
