// Package catalog holds the static attraction catalog. The catalog is
// compiled in, loaded once and read-only; bookings reference entries by
// title.
package catalog

import (
	"strings"

	"cdo-tour-client/internal/models"
)

var attractions = []models.Attraction{
	{
		ID:          "1",
		Title:       "White Water Rafting",
		Description: "Experience thrilling rapids on the Cagayan de Oro River with professional guides. Perfect for adventure seekers of all levels!",
		Image:       "/images/rafting.jpg",
		Location:    "Cagayan de Oro River",
		Rating:      4.8,
		Category:    "Adventure",
	},
	{
		ID:          "2",
		Title:       "Macahambus Adventure Park",
		Description: "Explore caves, canyons, and take in breathtaking views of the Cagayan de Oro River from suspension bridges and platforms.",
		Image:       "/images/cave.jpg",
		Location:    "Macahambus, Cagayan de Oro",
		Rating:      4.6,
		Category:    "Nature",
	},
	{
		ID:          "3",
		Title:       "Divine Mercy Shrine",
		Description: "Visit this spiritual landmark featuring a 50-foot statue of Jesus Christ, offering panoramic views of the city and Macajalar Bay.",
		Image:       "/images/shrine.jpg",
		Location:    "El Salvador City",
		Rating:      4.7,
		Category:    "Religious",
	},
	{
		ID:          "4",
		Title:       "Dahilayan Adventure Park",
		Description: "Experience Asia's longest dual zipline and other exciting attractions surrounded by the cool climate of Bukidnon highlands.",
		Image:       "/images/zipline.jpg",
		Location:    "Manolo Fortich, Bukidnon",
		Rating:      4.9,
		Category:    "Adventure",
	},
}

// All returns every catalog entry
func All() []models.Attraction {
	out := make([]models.Attraction, len(attractions))
	copy(out, attractions)
	return out
}

// ByID looks up an attraction by its catalog ID
func ByID(id string) (models.Attraction, bool) {
	for _, a := range attractions {
		if a.ID == id {
			return a, true
		}
	}
	return models.Attraction{}, false
}

// ByTitle looks up an attraction by title, case-insensitively
func ByTitle(title string) (models.Attraction, bool) {
	for _, a := range attractions {
		if strings.EqualFold(a.Title, title) {
			return a, true
		}
	}
	return models.Attraction{}, false
}
