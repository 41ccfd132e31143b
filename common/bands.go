package common

import "strings"

// Band identifies a Landsat Collection 2 Level-2 band product.
// Band files are named <SCENE_ID>_<BAND>, e.g. LC08_L2SP_193029_20220403_20220406_02_T1_QA_PIXEL
type Band string

const (
	BandQAPixel Band = "QA_PIXEL" // Pixel quality assessment (all sensors)
	BandSTB10   Band = "ST_B10"   // Surface temperature, OLI-TIRS (Landsat 8/9)
	BandSTB6    Band = "ST_B6"    // Surface temperature, TM & ETM+ (Landsat 4-7)
)

// DefaultBands are the bands to retrieve from each scene
var DefaultBands = []Band{BandQAPixel, BandSTB10, BandSTB6}

// MatchesDisplayID returns whether the product displayId refers to this band
func (b Band) MatchesDisplayID(displayID string) bool {
	return strings.Contains(displayID, string(b))
}

// MatchAnyBand returns whether the product displayId refers to one of bands
func MatchAnyBand(bands []Band, displayID string) bool {
	for _, b := range bands {
		if b.MatchesDisplayID(displayID) {
			return true
		}
	}
	return false
}
