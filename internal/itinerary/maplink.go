package itinerary

import (
	"net/url"
	"strconv"
	"strings"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// MapLink derives the map link for an activity. Coordinates win over the place
// name, which wins over the address; with none of them there is no link.
func MapLink(loc *Location) string {
	if loc == nil {
		return ""
	}
	if loc.HasCoordinates() {
		return mapsSearchURL + formatCoord(*loc.Lat) + "," + formatCoord(*loc.Lon)
	}
	if name := strings.TrimSpace(loc.Name); name != "" {
		return mapsSearchURL + url.QueryEscape(name)
	}
	if addr := strings.TrimSpace(loc.Address); addr != "" {
		return mapsSearchURL + url.QueryEscape(addr)
	}
	return ""
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
