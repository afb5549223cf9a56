package watcher

import (
	"time"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileRemoved  FileEventType = "removed"
	FileModified FileEventType = "modified"
)

// FileEvent summarizes a burst of changes under the watched root. Path is
// the last changed file and Count the number of changes folded into it.
type FileEvent struct {
	Path      string
	EventType FileEventType
	Count     int
	Timestamp time.Time
}
