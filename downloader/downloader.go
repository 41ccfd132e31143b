package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geoclim/landsat-fetcher/common"
	"github.com/geoclim/landsat-fetcher/interface/m2m"
	"github.com/geoclim/landsat-fetcher/service"
	"github.com/geoclim/landsat-fetcher/service/log"
)

// Result is the outcome of the retrieval of one staged download
type Result struct {
	URL      string
	Filename string
	Status   common.Status
	Err      error
}

// Downloader fetches the files staged by a bulk download-request into an output directory
type Downloader struct {
	client *m2m.Client
	outDir string
	// the staged urls are pre-signed and fetched without the api key
	httpClient *http.Client
}

// New creates a Downloader writing the downloaded files into outDir
func New(client *m2m.Client, outDir string) *Downloader {
	return &Downloader{
		client: client,
		outDir: outDir,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Run stages the candidates under a timestamp label and fetches every available file into outDir.
// Without candidates, Run is a no-op: nothing is requested and no directory is created.
func (d *Downloader) Run(ctx context.Context, candidates []common.Download) ([]Result, error) {
	if len(candidates) == 0 {
		log.Logger(ctx).Info("no valid downloads found")
		return nil, nil
	}

	label := time.Now().Format("20060102_150405")
	res, err := d.client.DownloadRequest(ctx, candidates, label)
	if err != nil {
		return nil, fmt.Errorf("Run.%w", err)
	}
	if len(res.PreparingDownloads) > 0 {
		log.Logger(ctx).Sugar().Warnf("%d downloads are still preparing and will not be fetched", len(res.PreparingDownloads))
	}
	log.Logger(ctx).Sugar().Infof("%d files ready for download", len(res.AvailableDownloads))

	if err := os.MkdirAll(d.outDir, 0766); err != nil {
		return nil, service.MakeTemporary(fmt.Errorf("Run.MkdirAll %s: %w", d.outDir, err))
	}

	results := make([]Result, 0, len(res.AvailableDownloads))
	for _, available := range res.AvailableDownloads {
		result := d.fetch(ctx, available.URL)
		switch result.Status {
		case common.StatusDOWNLOADED:
			log.Logger(ctx).Sugar().Infof("downloaded %s", result.Filename)
		case common.StatusSKIPPED:
			log.Logger(ctx).Sugar().Warnf("skipping %s: no filename in content-disposition header", available.URL)
		case common.StatusFAILED:
			log.Logger(ctx).Sugar().Warnf("download failed: %v", result.Err)
		}
		results = append(results, result)
	}
	return results, nil
}

// fetch downloads one staged file, named after the content-disposition header of the response.
// A response without a filename is skipped without writing anything.
func (d *Downloader) fetch(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{URL: url, Status: common.StatusFAILED, Err: fmt.Errorf("fetch.NewRequest: %w", err)}
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Result{URL: url, Status: common.StatusFAILED, Err: service.MakeTemporary(fmt.Errorf("fetch[%s]: %w", url, err))}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch[%s]: status %d", url, resp.StatusCode)
		if service.TemporaryCode(resp.StatusCode) {
			err = service.MakeTemporary(err)
		}
		return Result{URL: url, Status: common.StatusFAILED, Err: err}
	}

	filename, ok := dispositionFilename(resp.Header.Get("Content-Disposition"))
	if !ok {
		return Result{URL: url, Status: common.StatusSKIPPED}
	}

	if err := d.writeFile(filename, resp.Body); err != nil {
		return Result{URL: url, Filename: filename, Status: common.StatusFAILED, Err: err}
	}
	return Result{URL: url, Filename: filename, Status: common.StatusDOWNLOADED}
}

var filenameRe = regexp.MustCompile(`filename=(.+)`)

// dispositionFilename extracts the filename of a content-disposition header
func dispositionFilename(disposition string) (string, bool) {
	m := filenameRe.FindStringSubmatch(disposition)
	if m == nil {
		return "", false
	}
	filename := strings.Trim(m[1], "\"")
	if filename == "" {
		return "", false
	}
	return filename, true
}

// writeFile streams body into a staging file of outDir, renamed to name once complete
func (d *Downloader) writeFile(name string, body io.Reader) error {
	staging := filepath.Join(d.outDir, ".staging-"+uuid.New().String())
	f, err := os.Create(staging)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("writeFile.Create: %w", err))
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(staging)
		return service.MakeTemporary(fmt.Errorf("writeFile.Copy: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return service.MakeTemporary(fmt.Errorf("writeFile.Close: %w", err))
	}
	if err := os.Rename(staging, filepath.Join(d.outDir, filepath.Base(name))); err != nil {
		os.Remove(staging)
		return service.MakeTemporary(fmt.Errorf("writeFile.Rename: %w", err))
	}
	return nil
}

// NormalizeExtensions renames the files of dir with an upper-cased .TIF extension to .tif.
// It returns the number of renamed files and the merged rename errors.
func NormalizeExtensions(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("NormalizeExtensions.ReadDir: %w", err)
	}
	renamed := 0
	var errs error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !service.ExtEqualFold(name, service.ExtensionGTiff) {
			continue
		}
		src := filepath.Join(dir, name)
		dst := service.WithExt(src, service.ExtensionGTiff)
		if dst == src {
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			errs = service.MergeErrors(true, errs, fmt.Errorf("NormalizeExtensions.Rename[%s]: %w", name, err))
			continue
		}
		log.Logger(ctx).Sugar().Debugf("renamed %s to %s", name, filepath.Base(dst))
		renamed++
	}
	return renamed, errs
}
