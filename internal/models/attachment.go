package models

import "fmt"

// Attachment is metadata for one MIME part of a message.
type Attachment struct {
	ID           string
	Filename     string
	MimeType     string
	Size         int64
	LocalPath    string // set asynchronously by a separate download worker
	ContentID    string
	Downloaded   bool
}

// SizeHuman renders Size as a human-readable string (e.g. "1.2 MB").
func (a *Attachment) SizeHuman() string {
	const unit int64 = 1024
	if a.Size < unit {
		return fmt.Sprintf("%d B", a.Size)
	}
	div, exp := unit, 0
	for n := a.Size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(a.Size)/float64(div), units[exp])
}
