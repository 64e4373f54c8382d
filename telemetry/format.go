package telemetry

/*-------------------------------------------------------------
 *
 * Purpose:	Operator-facing rendering of GPS telemetry: fixed-width
 *		degrees/minutes strings for the status line, and a UTM
 *		string for pilots who think in grid coordinates.
 *
 * Grounded on src/latlong.go's latitude_to_str/longitude_to_str and
 * ll_distance_km/ll_bearing_deg, with the CGO Convert_UTM_To_Geodetic
 * call (src/aprs_tt.go, src/config.go) replaced by coordconv and the
 * Haversine distance replaced by golang/geo's s2 angular distance.
 *
 *--------------------------------------------------------------*/

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

const earthRadiusKM = 6371

// FormatLatDegMin renders a latitude as ddmm.mm[NS], clamped to +-90.
func FormatLatDegMin(dlat float64) string {
	if dlat < -90 {
		dlat = -90
	}
	if dlat > 90 {
		dlat = 90
	}

	hemi := byte('N')
	if dlat < 0 {
		dlat = -dlat
		hemi = 'S'
	}

	ideg := int(dlat)
	dmin := (dlat - float64(ideg)) * 60
	smin := fmt.Sprintf("%05.2f", dmin)
	if smin[0] == '6' {
		smin = "00.00"
		ideg++
	}
	return fmt.Sprintf("%02d%s%c", ideg, smin, hemi)
}

// FormatLonDegMin renders a longitude as dddmm.mm[EW], clamped to +-180.
func FormatLonDegMin(dlon float64) string {
	if dlon < -180 {
		dlon = -180
	}
	if dlon > 180 {
		dlon = 180
	}

	hemi := byte('E')
	if dlon < 0 {
		dlon = -dlon
		hemi = 'W'
	}

	ideg := int(dlon)
	dmin := (dlon - float64(ideg)) * 60
	smin := fmt.Sprintf("%05.2f", dmin)
	if smin[0] == '6' {
		smin = "00.00"
		ideg++
	}
	return fmt.Sprintf("%03d%s%c", ideg, smin, hemi)
}

// FormatUTM renders a lat/lon pair as a UTM grid string, e.g.
// "18T 585628E 4511322N".
func FormatUTM(lat, lon float64) (string, error) {
	zone, hemi, easting, northing, err := coordconv.GeodeticToUTM(lat, lon)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d%c %.0fE %.0fN", zone, HemisphereToRune(hemi), easting, northing), nil
}

// HemisphereToRune mirrors src/coordconv.go's hemisphere <-> rune mapping.
func HemisphereToRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '!'
	}
}

// FormatGPS renders a GPS fix as "ddmm.mm[NS] dddmm.mm[EW] (UTM ...)",
// falling back to just the degrees/minutes pair if the UTM conversion
// fails (e.g. a polar fix outside the UTM projection's domain).
func FormatGPS(lat, lon float64) string {
	base := FormatLatDegMin(lat) + " " + FormatLonDegMin(lon)
	if utm, err := FormatUTM(lat, lon); err == nil {
		return base + " (" + utm + ")"
	}
	return base
}

// DistanceKM returns the great-circle distance between two lat/lon
// points in kilometres.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusKM
}

// BearingDeg returns the initial bearing in degrees [0, 360) from
// point 1 to point 2.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	lat1 *= math.Pi / 180
	lon1 *= math.Pi / 180
	lat2 *= math.Pi / 180
	lon2 *= math.Pi / 180

	b := math.Atan2(
		math.Sin(lon2-lon1)*math.Cos(lat2),
		math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1),
	)
	b *= 180 / math.Pi
	if b < 0 {
		b += 360
	}
	return b
}
