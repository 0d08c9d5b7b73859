package models

import "strings"

// Station is a resource station referenced by value from missions and alerts
type Station struct {
	Type string  `bson:"type" json:"type" example:"hospital"`
	Name string  `bson:"name" json:"name" example:"City General"`
	Lat  float64 `bson:"lat,omitempty" json:"lat,omitempty" example:"18.5"`
	Lon  float64 `bson:"lon,omitempty" json:"lon,omitempty" example:"73.8"`
}

// Valid reports whether the station carries the fields needed to address it
func (s *Station) Valid() bool {
	return s != nil && strings.TrimSpace(s.Type) != "" && strings.TrimSpace(s.Name) != ""
}

// Slug returns a topic-safe form of the station name
func (s Station) Slug() string {
	return slugify(s.Name)
}

// TypeSlug returns a topic-safe form of the station type
func (s Station) TypeSlug() string {
	return slugify(s.Type)
}

func slugify(v string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
