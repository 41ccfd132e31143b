package catalog_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/geoclim/landsat-fetcher/catalog"
)

var _ = Describe("ValidDatasets", func() {
	Context("With a window before any acquisition", func() {
		It("should return no dataset", func() {
			Expect(catalog.ValidDatasets(catalog.Date(1970, 1, 1), catalog.Date(1982, 7, 15))).To(BeEmpty())
		})
	})

	Context("With a window in the future", func() {
		It("should return no dataset", func() {
			start := time.Now().UTC().AddDate(0, 0, 1)
			Expect(catalog.ValidDatasets(start, start.AddDate(1, 0, 0))).To(BeEmpty())
		})
	})

	Context("With the first day of TM", func() {
		It("should return TM only", func() {
			Expect(catalog.ValidDatasets(catalog.Date(1982, 7, 16), catalog.Date(1982, 7, 16))).To(Equal([]string{"landsat_tm_c2_l2"}))
		})
	})

	Context("With the last day of TM", func() {
		It("should return TM and ETM+", func() {
			Expect(catalog.ValidDatasets(catalog.Date(2011, 6, 5), catalog.Date(2011, 6, 5))).To(Equal([]string{"landsat_etm_c2_l2", "landsat_tm_c2_l2"}))
		})
	})

	Context("With a window right after the end of TM", func() {
		It("should return ETM+ only", func() {
			Expect(catalog.ValidDatasets(catalog.Date(2011, 6, 6), catalog.Date(2011, 6, 6))).To(Equal([]string{"landsat_etm_c2_l2"}))
		})
	})

	Context("With a window between 2012 and 2014", func() {
		It("should return ETM+ and OLI/TIRS", func() {
			Expect(catalog.ValidDatasets(catalog.Date(2012, 1, 1), catalog.Date(2014, 1, 1))).To(Equal([]string{"landsat_etm_c2_l2", "landsat_ot_c2_l2"}))
		})
	})

	Context("With a window covering all the acquisitions", func() {
		It("should return the three datasets", func() {
			Expect(catalog.ValidDatasets(catalog.Date(1980, 1, 1), catalog.Date(2023, 1, 1))).To(Equal([]string{"landsat_etm_c2_l2", "landsat_ot_c2_l2", "landsat_tm_c2_l2"}))
		})
	})

	Context("With a window after the end of ETM+", func() {
		It("should return OLI/TIRS only", func() {
			Expect(catalog.ValidDatasets(catalog.Date(2022, 4, 7), catalog.Date(2022, 5, 1))).To(Equal([]string{"landsat_ot_c2_l2"}))
		})
	})
})

var _ = Describe("Overlaps", func() {
	It("should be inclusive on both bounds", func() {
		Expect(catalog.Overlaps(catalog.Date(2000, 1, 1), catalog.Date(2000, 1, 31), catalog.Date(2000, 1, 31), catalog.Date(2000, 2, 15))).To(BeTrue())
		Expect(catalog.Overlaps(catalog.Date(2000, 1, 1), catalog.Date(2000, 1, 31), catalog.Date(2000, 2, 1), catalog.Date(2000, 2, 15))).To(BeFalse())
	})

	It("should be commutative", func() {
		s1, e1 := catalog.Date(2000, 1, 1), catalog.Date(2000, 6, 1)
		s2, e2 := catalog.Date(2000, 3, 1), catalog.Date(2000, 9, 1)
		Expect(catalog.Overlaps(s1, e1, s2, e2)).To(Equal(catalog.Overlaps(s2, e2, s1, e1)))
	})

	It("should report a range included in another", func() {
		Expect(catalog.Overlaps(catalog.Date(2000, 1, 1), catalog.Date(2000, 12, 31), catalog.Date(2000, 3, 1), catalog.Date(2000, 4, 1))).To(BeTrue())
	})
})
