package dto

// CreateExportRequest queues an admin export job.
type CreateExportRequest struct {
	Type     string            `json:"type" validate:"required,oneof=submissions schools listings"`
	Format   string            `json:"format" validate:"required,oneof=csv pdf"`
	CountyID *string           `json:"countyId,omitempty"`
	Status   *string           `json:"status,omitempty"`
	Extras   map[string]string `json:"extras,omitempty"`
}

// ExportStatusResponse reports job progress and the signed download URL once finished.
type ExportStatusResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Format      string  `json:"format"`
	Status      string  `json:"status"`
	DownloadURL *string `json:"downloadUrl,omitempty"`
	ExpiresAt   *string `json:"expiresAt,omitempty"`
	Error       *string `json:"error,omitempty"`
}
