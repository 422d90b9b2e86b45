package cafe

// PopularCafe is one entry of the home grid.
type PopularCafe struct {
	Name     string  `json:"name"`
	ImageURL string  `json:"imageUrl"`
	Rating   float64 `json:"rating"`
}

// popularThisWeek is a fixed fixture; the home grid is decorative and not
// backed by real activity data.
var popularThisWeek = []PopularCafe{
	{Name: "Monocle Cafe", ImageURL: "https://picsum.photos/300/400?random=1", Rating: 4.2},
	{Name: "% Arabica", ImageURL: "https://picsum.photos/300/400?random=2", Rating: 4.5},
	{Name: "Blue Bottle", ImageURL: "https://picsum.photos/300/400?random=3", Rating: 3.8},
	{Name: "Fuglen Tokyo", ImageURL: "https://picsum.photos/300/400?random=4", Rating: 4.9},
	{Name: "Sey Coffee", ImageURL: "https://picsum.photos/300/400?random=5", Rating: 4.7},
	{Name: "La Cabra", ImageURL: "https://picsum.photos/300/400?random=6", Rating: 4.4},
}

// PopularThisWeek returns the home grid entries.
func PopularThisWeek() []PopularCafe {
	out := make([]PopularCafe, len(popularThisWeek))
	copy(out, popularThisWeek)
	return out
}
