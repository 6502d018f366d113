package index

// ProgressReporter provides callbacks for reporting indexing progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once the file list is known.
	OnDiscoveryComplete(totalFiles int)

	// OnExtractStart is called before extracting changed files.
	OnExtractStart(changedFiles int)

	// OnFileExtracted is called after each changed file is extracted.
	OnFileExtracted(path string)

	// OnComplete is called when the run has been written to the store.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryComplete(totalFiles int) {}
func (NoOpProgressReporter) OnExtractStart(changedFiles int)    {}
func (NoOpProgressReporter) OnFileExtracted(path string)        {}
func (NoOpProgressReporter) OnComplete(stats *Stats)            {}
