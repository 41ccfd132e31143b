package catalog

import (
	"time"

	"github.com/geoclim/landsat-fetcher/service"
)

// sensorFamily is a Landsat Collection 2 Level-2 dataset with its acquisition period.
// A zero End means the sensor is still acquiring.
type sensorFamily struct {
	Dataset    string
	Start, End time.Time
}

var sensorFamilies = []sensorFamily{
	{Dataset: "landsat_tm_c2_l2", Start: date(1982, 7, 16), End: date(2011, 6, 5)},  // Landsat 4 & 5 (TM)
	{Dataset: "landsat_etm_c2_l2", Start: date(1999, 4, 15), End: date(2022, 4, 6)}, // Landsat 7 (ETM+)
	{Dataset: "landsat_ot_c2_l2", Start: date(2013, 2, 11)},                         // Landsat 8 & 9 (OLI/TIRS)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// overlaps returns whether [s1, e1] and [s2, e2] intersect (inclusive)
func overlaps(s1, e1, s2, e2 time.Time) bool {
	max, min := s1, e1
	if max.Before(s2) {
		max = s2
	}
	if min.After(e2) {
		min = e2
	}
	return !max.After(min)
}

// ValidDatasets returns the datasets with acquisitions between start and end, in lexicographic order
func ValidDatasets(start, end time.Time) []string {
	valid := service.StringSet{}
	for _, f := range sensorFamilies {
		fEnd := f.End
		if fEnd.IsZero() {
			fEnd = time.Now().UTC()
		}
		if overlaps(start, end, f.Start, fEnd) {
			valid.Push(f.Dataset)
		}
	}
	return valid.SortedSlice()
}
