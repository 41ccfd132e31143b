package common

// Download identifies a product to retrieve, as expected by the download-request endpoint
type Download struct {
	EntityID  string `json:"entityId"`
	ProductID string `json:"productId"`
}
