// Package m2m implements a client for the USGS Machine-to-Machine api
// (https://m2m.cr.usgs.gov/api/docs/json/).
package m2m

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-spatial/geom"

	"github.com/geoclim/landsat-fetcher/common"
	"github.com/geoclim/landsat-fetcher/service"
)

const (
	// StableURL is the endpoint of the stable version of the api
	StableURL = "https://m2m.cr.usgs.gov/api/api/json/stable/"

	userAgent      = "landsat-fetcher/1.0"
	requestTimeout = 30 * time.Second
)

// APIError is an error returned in the body of an api response
type APIError struct {
	Code    string
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// ErrMissingData is an error returned when an api response has no data field
type ErrMissingData struct {
	Endpoint string
}

func (e ErrMissingData) Error() string {
	return fmt.Sprintf("no data returned by %s", e.Endpoint)
}

// envelope wraps every response of the api
type envelope struct {
	RequestID    int64           `json:"requestId"`
	Version      string          `json:"version"`
	SessionID    int64           `json:"sessionId"`
	Data         json.RawMessage `json:"data"`
	ErrorCode    *string         `json:"errorCode"`
	ErrorMessage *string         `json:"errorMessage"`
}

// Client queries the M2M api, injecting the api key retrieved by Login into each request
type Client struct {
	baseURL    string
	httpClient *http.Client
	transport  *authTransport
}

// NewClient creates a new M2M api client
func NewClient(baseURL string) *Client {
	if baseURL != "" && baseURL[len(baseURL)-1] != '/' {
		baseURL += "/"
	}
	transport := &authTransport{
		base: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		transport: transport,
	}
}

// sendRequest posts the payload to the endpoint and unmarshals the data field of the response into out (if not nil)
func (c *Client) sendRequest(ctx context.Context, endpoint string, payload, out interface{}) error {
	reqBody := &bytes.Buffer{}
	if err := json.NewEncoder(reqBody).Encode(payload); err != nil {
		return fmt.Errorf("sendRequest.Encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("sendRequest.NewRequest: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("sendRequest.Do: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(body))
		if service.TemporaryCode(resp.StatusCode) {
			return service.MakeTemporary(err)
		}
		return err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("sendRequest.Decode: %w", err)
	}
	if env.ErrorCode != nil && *env.ErrorCode != "" {
		apiErr := APIError{Code: *env.ErrorCode}
		if env.ErrorMessage != nil {
			apiErr.Message = *env.ErrorMessage
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return ErrMissingData{Endpoint: endpoint}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("sendRequest.Unmarshal: %w", err)
	}
	return nil
}

type loginTokenRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Login retrieves an api key from the ERS credentials and installs it on the client.
// The key authenticates all the subsequent requests until Logout.
func (c *Client) Login(ctx context.Context, username, token string) error {
	var apiKey string
	if err := c.sendRequest(ctx, "login-token", loginTokenRequest{Username: username, Token: token}, &apiKey); err != nil {
		return fmt.Errorf("Login.%w", err)
	}
	if apiKey == "" {
		return fmt.Errorf("Login: empty api key")
	}
	c.transport.setAPIKey(apiKey)
	return nil
}

// Logout invalidates the api key of the client
func (c *Client) Logout(ctx context.Context) error {
	if err := c.sendRequest(ctx, "logout", nil, nil); err != nil {
		return fmt.Errorf("Logout.%w", err)
	}
	c.transport.setAPIKey("")
	return nil
}

// AcquisitionFilter restricts a scene-search to an acquisition date range (inclusive)
type AcquisitionFilter struct {
	Start string `json:"start"` // yyyy-mm-dd
	End   string `json:"end"`   // yyyy-mm-dd
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SpatialFilter restricts a scene-search to a geographic area
type SpatialFilter struct {
	FilterType string     `json:"filterType"`
	LowerLeft  Coordinate `json:"lowerLeft"`
	UpperRight Coordinate `json:"upperRight"`
}

// NewMBRFilter returns the SpatialFilter covering the lon/lat extent
func NewMBRFilter(extent geom.Extent) SpatialFilter {
	return SpatialFilter{
		FilterType: "mbr",
		LowerLeft:  Coordinate{Latitude: extent.MinY(), Longitude: extent.MinX()},
		UpperRight: Coordinate{Latitude: extent.MaxY(), Longitude: extent.MaxX()},
	}
}

// CloudCoverFilter restricts a scene-search to scenes below a cloud cover percentage
type CloudCoverFilter struct {
	Max int `json:"max"`
}

type SceneFilter struct {
	AcquisitionFilter AcquisitionFilter `json:"acquisitionFilter"`
	SpatialFilter     SpatialFilter     `json:"spatialFilter"`
	CloudCoverFilter  CloudCoverFilter  `json:"cloudCoverFilter"`
}

type SceneSearchRequest struct {
	DatasetName string      `json:"datasetName"`
	SceneFilter SceneFilter `json:"sceneFilter"`
}

type SceneResult struct {
	EntityID  string `json:"entityId"`
	DisplayID string `json:"displayId"`
}

type SceneSearchResponse struct {
	Results         []SceneResult `json:"results"`
	RecordsReturned int           `json:"recordsReturned"`
	TotalHits       int           `json:"totalHits"`
}

// SceneSearch returns the scenes of the dataset matching the filter.
// A response without data is returned as an empty result, not an error.
func (c *Client) SceneSearch(ctx context.Context, search SceneSearchRequest) (*SceneSearchResponse, error) {
	res := SceneSearchResponse{}
	if err := c.sendRequest(ctx, "scene-search", search, &res); err != nil {
		var errMissing ErrMissingData
		if errors.As(err, &errMissing) {
			return &res, nil
		}
		return nil, fmt.Errorf("SceneSearch[%s].%w", search.DatasetName, err)
	}
	return &res, nil
}

type downloadOptionsRequest struct {
	DatasetName                string   `json:"datasetName"`
	EntityIDs                  []string `json:"entityIds"`
	IncludeSecondaryFileGroups bool     `json:"includeSecondaryFileGroups"`
}

// SecondaryDownload is a single-file product attached to a DownloadOption
type SecondaryDownload struct {
	ID            string `json:"id"`
	EntityID      string `json:"entityId"`
	DisplayID     string `json:"displayId"`
	BulkAvailable bool   `json:"bulkAvailable"`
}

// DownloadOption is a downloadable product of a scene
type DownloadOption struct {
	ID                 string              `json:"id"`
	EntityID           string              `json:"entityId"`
	DisplayID          string              `json:"displayId"`
	BulkAvailable      bool                `json:"bulkAvailable"`
	SecondaryDownloads []SecondaryDownload `json:"secondaryDownloads"`
}

// DownloadOptions returns the downloadable products of the given scenes, with their secondary file groups
func (c *Client) DownloadOptions(ctx context.Context, datasetName string, entityIDs []string) ([]DownloadOption, error) {
	options := []DownloadOption{}
	req := downloadOptionsRequest{DatasetName: datasetName, EntityIDs: entityIDs, IncludeSecondaryFileGroups: true}
	if err := c.sendRequest(ctx, "download-options", req, &options); err != nil {
		return nil, fmt.Errorf("DownloadOptions[%s].%w", datasetName, err)
	}
	return options, nil
}

type downloadRequest struct {
	Downloads []common.Download `json:"downloads"`
	Label     string            `json:"label"`
}

// AvailableDownload is a product staged by download-request, ready to be fetched at URL
type AvailableDownload struct {
	DownloadID int64  `json:"downloadId"`
	EntityID   string `json:"entityId"`
	URL        string `json:"url"`
}

// PreparingDownload is a product that download-request could not stage immediately
type PreparingDownload struct {
	DownloadID int64  `json:"downloadId"`
	EntityID   string `json:"entityId"`
}

type DownloadRequestResponse struct {
	AvailableDownloads []AvailableDownload `json:"availableDownloads"`
	PreparingDownloads []PreparingDownload `json:"preparingDownloads"`
}

// DownloadRequest stages the downloads under the given label and returns the ones ready to be fetched
func (c *Client) DownloadRequest(ctx context.Context, downloads []common.Download, label string) (*DownloadRequestResponse, error) {
	res := DownloadRequestResponse{}
	if err := c.sendRequest(ctx, "download-request", downloadRequest{Downloads: downloads, Label: label}, &res); err != nil {
		return nil, fmt.Errorf("DownloadRequest.%w", err)
	}
	return &res, nil
}
