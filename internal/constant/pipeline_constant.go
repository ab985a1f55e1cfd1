package constant

// Document lifecycle statuses. A document only ever moves forward:
// uploaded -> queued -> processing -> {completed | failed | cancelled}.
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusQueued     = "queued"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
	DocumentStatusCancelled  = "cancelled"
)

// Job broker states.
const (
	JobStateWaiting   = "waiting"
	JobStateActive    = "active"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)

// Progress event types pushed to notification collaborators.
const (
	EventTypeQueued    = "queued"
	EventTypeProgress  = "progress"
	EventTypeCompleted = "completed"
	EventTypeFailed    = "failed"
	EventTypeCancelled = "cancelled"
)

// Pipeline phase checkpoints, reported as percent complete.
const (
	ProgressExtracting = 10
	ProgressChunking   = 30
	ProgressEmbedding  = 60
	ProgressStoring    = 90
	ProgressDone       = 100
)

// Collection kinds. One text and one image collection per user.
const (
	CollectionKindText  = "text"
	CollectionKindImage = "image"
)

// Supported file types after extension normalization.
const (
	FileTypePDF  = "pdf"
	FileTypeDocx = "docx"
	FileTypeText = "txt"
	FileTypeCSV  = "csv"
	FileTypeMD   = "md"
)

func IsSupportedFileType(fileType string) bool {
	switch fileType {
	case FileTypePDF, FileTypeDocx, FileTypeText, FileTypeCSV, FileTypeMD:
		return true
	}
	return false
}
