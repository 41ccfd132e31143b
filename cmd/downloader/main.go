package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/caarlos0/env/v10"
	"github.com/go-spatial/geom"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/geoclim/landsat-fetcher/catalog"
	"github.com/geoclim/landsat-fetcher/common"
	"github.com/geoclim/landsat-fetcher/downloader"
	"github.com/geoclim/landsat-fetcher/interface/m2m"
	"github.com/geoclim/landsat-fetcher/service/log"
)

// credentials are the ERS credentials, read from the environment (or a .env file)
// when the flags are not provided
type credentials struct {
	Username string `env:"LANDSAT_USERNAME"`
	Token    string `env:"LANDSAT_TOKEN"`
}

type config struct {
	Username string
	Token    string
	AOI      geom.Extent
	Start    time.Time
	End      time.Time
	City     string
	OutDir   string
	APIURL   string
}

func newAppConfig() (*config, error) {
	config := config{}
	flag.StringVar(&config.Username, "username", "", "ERS account username (default: LANDSAT_USERNAME environment variable)")
	flag.StringVar(&config.Token, "token", "", "ERS application token (default: LANDSAT_TOKEN environment variable)")
	bbox := flag.String("bbox", "", "bounding box as xmin,ymin,xmax,ymax (lon/lat)")
	startDate := flag.String("start-date", "", "start of the acquisition window (yyyy-mm-dd)")
	endDate := flag.String("end-date", "", "end of the acquisition window (yyyy-mm-dd)")
	flag.StringVar(&config.City, "city", "Bologna", "name of the area of interest (informative)")
	flag.StringVar(&config.OutDir, "out-dir", ".", "directory where the downloaded images are saved")
	flag.StringVar(&config.APIURL, "api-url", m2m.StableURL, "M2M api endpoint")
	flag.Parse()

	if config.Username == "" || config.Token == "" {
		_ = godotenv.Load()
		creds := credentials{}
		if err := env.Parse(&creds); err != nil {
			return nil, fmt.Errorf("newAppConfig.Env: %w", err)
		}
		if config.Username == "" {
			config.Username = creds.Username
		}
		if config.Token == "" {
			config.Token = creds.Token
		}
	}
	if config.Username == "" {
		return nil, fmt.Errorf("missing username config flag")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("missing token config flag")
	}
	if *bbox == "" {
		return nil, fmt.Errorf("missing bbox config flag")
	}
	var err error
	if config.AOI, err = parseBbox(*bbox); err != nil {
		return nil, fmt.Errorf("newAppConfig.%w", err)
	}
	if *startDate == "" {
		return nil, fmt.Errorf("missing start-date config flag")
	}
	if *endDate == "" {
		return nil, fmt.Errorf("missing end-date config flag")
	}
	if config.Start, err = parseDate(*startDate); err != nil {
		return nil, fmt.Errorf("newAppConfig.%w", err)
	}
	if config.End, err = parseDate(*endDate); err != nil {
		return nil, fmt.Errorf("newAppConfig.%w", err)
	}
	if config.End.Before(config.Start) {
		return nil, fmt.Errorf("end-date %s is before start-date %s", *endDate, *startDate)
	}
	return &config, nil
}

// parseBbox parses "xmin,ymin,xmax,ymax" into a lon/lat extent
func parseBbox(bbox string) (geom.Extent, error) {
	fields := strings.Split(bbox, ",")
	if len(fields) != 4 {
		return geom.Extent{}, fmt.Errorf("parseBbox: expecting xmin,ymin,xmax,ymax, found %s", bbox)
	}
	var extent geom.Extent
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return geom.Extent{}, fmt.Errorf("parseBbox[%s]: %w", field, err)
		}
		extent[i] = v
	}
	if extent.MinX() > extent.MaxX() || extent.MinY() > extent.MaxY() {
		return geom.Extent{}, fmt.Errorf("parseBbox: malformed extent %s", bbox)
	}
	return extent, nil
}

// parseDate parses a date and truncates it to UTC midnight
func parseDate(date string) (time.Time, error) {
	t, err := dateparse.ParseAny(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parseDate[%s]: %w", date, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func main() {
	ctx := context.Background()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	datasets := catalog.ValidDatasets(config.Start, config.End)
	log.Logger(ctx).Sugar().Infof("using datasets: %v", datasets)

	client := m2m.NewClient(config.APIURL)
	if err := client.Login(ctx, config.Username, config.Token); err != nil {
		return fmt.Errorf("run.%w", err)
	}
	defer func() {
		if err := client.Logout(ctx); err != nil {
			log.Logger(ctx).Sugar().Warnf("logout: %v", err)
		}
	}()

	ctx = log.With(ctx, "area", config.City)
	downloads, err := catalog.CollectCandidates(ctx, client, datasets, catalog.Area{
		AOI:   config.AOI,
		Start: config.Start,
		End:   config.End,
		Bands: common.DefaultBands,
	})
	if err != nil {
		return fmt.Errorf("run.%w", err)
	}

	results, err := downloader.New(client, config.OutDir).Run(ctx, downloads)
	if err != nil {
		return fmt.Errorf("run.%w", err)
	}
	if len(downloads) == 0 {
		return nil
	}

	renamed, err := downloader.NormalizeExtensions(ctx, config.OutDir)
	if err != nil {
		log.Logger(ctx).Sugar().Warnf("normalize extensions: %v", err)
	}

	downloaded, skipped, failed := 0, 0, 0
	for _, result := range results {
		switch result.Status {
		case common.StatusDOWNLOADED:
			downloaded++
		case common.StatusSKIPPED:
			skipped++
		case common.StatusFAILED:
			failed++
		}
	}
	log.Logger(ctx).Sugar().Infof("download complete: %d downloaded (%d renamed), %d skipped, %d failed", downloaded, renamed, skipped, failed)
	return nil
}
