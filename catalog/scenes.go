package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-spatial/geom"

	"github.com/geoclim/landsat-fetcher/common"
	"github.com/geoclim/landsat-fetcher/interface/m2m"
	"github.com/geoclim/landsat-fetcher/service/log"
)

// maxCloudCover is the highest acceptable cloud cover percentage of a scene
const maxCloudCover = 70

// Area describes the acquisitions to retrieve: a lon/lat bounding box, a date range and the bands of interest
type Area struct {
	AOI   geom.Extent
	Start time.Time
	End   time.Time
	Bands []common.Band
}

// CollectCandidates searches each dataset for the scenes covering the area and returns the band files to download.
// A dataset whose download-options cannot be retrieved is skipped with a warning, a failed scene-search aborts the collection.
func CollectCandidates(ctx context.Context, client *m2m.Client, datasets []string, area Area) ([]common.Download, error) {
	downloads := []common.Download{}
	for _, dataset := range datasets {
		ctx := log.With(ctx, "dataset", dataset)
		scenes, err := client.SceneSearch(ctx, m2m.SceneSearchRequest{
			DatasetName: dataset,
			SceneFilter: m2m.SceneFilter{
				AcquisitionFilter: m2m.AcquisitionFilter{
					Start: area.Start.Format("2006-01-02"),
					End:   area.End.Format("2006-01-02"),
				},
				SpatialFilter:    m2m.NewMBRFilter(area.AOI),
				CloudCoverFilter: m2m.CloudCoverFilter{Max: maxCloudCover},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("CollectCandidates.%w", err)
		}
		if len(scenes.Results) == 0 {
			log.Logger(ctx).Sugar().Infof("no scenes found in %s", dataset)
			continue
		}
		log.Logger(ctx).Sugar().Debugf("%d scenes found", len(scenes.Results))

		entityIDs := make([]string, len(scenes.Results))
		for i, scene := range scenes.Results {
			entityIDs[i] = scene.EntityID
		}
		options, err := client.DownloadOptions(ctx, dataset, entityIDs)
		if err != nil {
			log.Logger(ctx).Sugar().Warnf("skipping %s: %v", dataset, err)
			continue
		}
		downloads = append(downloads, SelectCandidates(options, area.Bands)...)
	}
	return downloads, nil
}

// SelectCandidates returns the secondary products of options that are bulk-available band files
func SelectCandidates(options []m2m.DownloadOption, bands []common.Band) []common.Download {
	var downloads []common.Download
	for _, option := range options {
		for _, item := range option.SecondaryDownloads {
			if item.BulkAvailable && common.MatchAnyBand(bands, item.DisplayID) {
				downloads = append(downloads, common.Download{EntityID: item.EntityID, ProductID: item.ID})
			}
		}
	}
	return downloads
}
