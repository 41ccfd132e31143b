package catalog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/go-spatial/geom"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/geoclim/landsat-fetcher/catalog"
	"github.com/geoclim/landsat-fetcher/common"
	"github.com/geoclim/landsat-fetcher/interface/m2m"
)

var _ = Describe("SelectCandidates", func() {
	newOption := func(bulkAvailable bool, displayID string) m2m.DownloadOption {
		return m2m.DownloadOption{
			ID:            "opt1",
			EntityID:      "scene1",
			DisplayID:     "LC08_L2SP_193029_20220403_20220406_02_T1",
			BulkAvailable: false,
			SecondaryDownloads: []m2m.SecondaryDownload{
				{ID: "sec1", EntityID: "entity1", DisplayID: displayID, BulkAvailable: bulkAvailable},
			},
		}
	}

	Context("With a bulk-available band file", func() {
		It("should select it", func() {
			downloads := catalog.SelectCandidates([]m2m.DownloadOption{newOption(true, "LC08_L2SP_193029_20220403_20220406_02_T1_QA_PIXEL")}, common.DefaultBands)
			Expect(downloads).To(Equal([]common.Download{{EntityID: "entity1", ProductID: "sec1"}}))
		})
	})

	Context("With a band file that is not bulk-available", func() {
		It("should not select it", func() {
			downloads := catalog.SelectCandidates([]m2m.DownloadOption{newOption(false, "LC08_L2SP_193029_20220403_20220406_02_T1_QA_PIXEL")}, common.DefaultBands)
			Expect(downloads).To(BeEmpty())
		})
	})

	Context("With a bulk-available file of another band", func() {
		It("should not select it", func() {
			downloads := catalog.SelectCandidates([]m2m.DownloadOption{newOption(true, "LC08_L2SP_193029_20220403_20220406_02_T1_SR_B4")}, common.DefaultBands)
			Expect(downloads).To(BeEmpty())
		})
	})

	Context("With no requested bands", func() {
		It("should select nothing", func() {
			downloads := catalog.SelectCandidates([]m2m.DownloadOption{newOption(true, "LC08_L2SP_193029_20220403_20220406_02_T1_QA_PIXEL")}, nil)
			Expect(downloads).To(BeEmpty())
		})
	})
})

var _ = Describe("CollectCandidates", func() {
	var server *httptest.Server
	var searchPayloads []map[string]interface{}
	var optionsCalls []string
	var failOptionsFor string
	var failSearch bool

	area := catalog.Area{
		AOI:   geom.Extent{11.0, 44.3, 11.6, 44.7},
		Start: catalog.Date(2002, 1, 1),
		End:   catalog.Date(2002, 12, 31),
		Bands: common.DefaultBands,
	}
	datasets := []string{"landsat_etm_c2_l2", "landsat_tm_c2_l2"}

	BeforeEach(func() {
		searchPayloads = nil
		optionsCalls = nil
		failOptionsFor = ""
		failSearch = false
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/scene-search":
				if failSearch {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				var payload map[string]interface{}
				Expect(json.NewDecoder(r.Body).Decode(&payload)).NotTo(HaveOccurred())
				searchPayloads = append(searchPayloads, payload)
				fmt.Fprint(w, `{"data":{"results":[{"entityId":"e1","displayId":"LE07_L2SP_193029_20020406_20200916_02_T1"}],"recordsReturned":1,"totalHits":1}}`)
			case "/download-options":
				var payload struct {
					DatasetName string   `json:"datasetName"`
					EntityIDs   []string `json:"entityIds"`
				}
				Expect(json.NewDecoder(r.Body).Decode(&payload)).NotTo(HaveOccurred())
				optionsCalls = append(optionsCalls, payload.DatasetName)
				Expect(payload.EntityIDs).To(Equal([]string{"e1"}))
				if payload.DatasetName == failOptionsFor {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				fmt.Fprint(w, `{"data":[{"id":"o1","entityId":"e1","displayId":"LE07_L2SP_193029_20020406_20200916_02_T1","bulkAvailable":false,"secondaryDownloads":[{"id":"s1","entityId":"se1","displayId":"LE07_L2SP_193029_20020406_20200916_02_T1_ST_B6","bulkAvailable":true}]}]}`)
			default:
				Fail("unexpected path " + r.URL.Path)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	Context("With two datasets", func() {
		It("should collect the band files of both", func() {
			downloads, err := catalog.CollectCandidates(context.Background(), m2m.NewClient(server.URL), datasets, area)
			Expect(err).NotTo(HaveOccurred())
			Expect(downloads).To(Equal([]common.Download{
				{EntityID: "se1", ProductID: "s1"},
				{EntityID: "se1", ProductID: "s1"},
			}))
			Expect(optionsCalls).To(Equal(datasets))
		})

		It("should send the acquisition, spatial and cloud cover filters", func() {
			_, err := catalog.CollectCandidates(context.Background(), m2m.NewClient(server.URL), datasets, area)
			Expect(err).NotTo(HaveOccurred())
			Expect(searchPayloads).To(HaveLen(2))
			Expect(searchPayloads[0]["datasetName"]).To(Equal("landsat_etm_c2_l2"))

			sceneFilter := searchPayloads[0]["sceneFilter"].(map[string]interface{})
			Expect(sceneFilter["acquisitionFilter"]).To(Equal(map[string]interface{}{"start": "2002-01-01", "end": "2002-12-31"}))
			Expect(sceneFilter["cloudCoverFilter"]).To(Equal(map[string]interface{}{"max": 70.0}))

			spatial := sceneFilter["spatialFilter"].(map[string]interface{})
			Expect(spatial["filterType"]).To(Equal("mbr"))
			Expect(spatial["lowerLeft"]).To(Equal(map[string]interface{}{"latitude": 44.3, "longitude": 11.0}))
			Expect(spatial["upperRight"]).To(Equal(map[string]interface{}{"latitude": 44.7, "longitude": 11.6}))
		})
	})

	Context("With a dataset whose download-options fail", func() {
		It("should skip the dataset and collect the others", func() {
			failOptionsFor = "landsat_etm_c2_l2"
			downloads, err := catalog.CollectCandidates(context.Background(), m2m.NewClient(server.URL), datasets, area)
			Expect(err).NotTo(HaveOccurred())
			Expect(downloads).To(Equal([]common.Download{{EntityID: "se1", ProductID: "s1"}}))
			Expect(optionsCalls).To(Equal(datasets))
		})
	})

	Context("With a failing scene-search", func() {
		It("should abort the collection", func() {
			failSearch = true
			_, err := catalog.CollectCandidates(context.Background(), m2m.NewClient(server.URL), datasets, area)
			Expect(err).To(HaveOccurred())
		})
	})
})
