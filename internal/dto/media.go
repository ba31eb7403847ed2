package dto

// UploadMediaResponse describes a stored upload
type UploadMediaResponse struct {
	Kind        string         `json:"kind"`
	Path        string         `json:"path"`
	URL         string         `json:"url"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	Event       *EventResponse `json:"event"`
}
