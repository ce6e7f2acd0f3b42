// Package ingest drives each source through the ingestion state machine:
// uploading, extracting, chunking, embedding, summarizing and completed, with
// failed reachable from any stage before completion.
package ingest

import "github.com/BadakalaYashwanth/Scrible/internal/models"

// Step is one state of the plan with its display message and progress.
type Step struct {
	Stage    models.Stage
	Progress int
	Message  string
}

// Plan is the ordered stage sequence of a successful run. Progress strictly increases.
var Plan = []Step{
	{models.StageUploading, 10, "Uploading source..."},
	{models.StageExtracting, 20, "Extracting text content..."},
	{models.StageChunking, 40, "Splitting content into chunks..."},
	{models.StageEmbedding, 60, "Generating embeddings..."},
	{models.StageSummarizing, 80, "Generating summary and key points..."},
	{models.StageCompleted, 100, "Processing complete"},
}

// FailedMessage is the display message of a failed source.
const FailedMessage = "Processing failed"

// ReprocessFailedMessage is the error recorded when a reprocess run is refused by its outcome source.
const ReprocessFailedMessage = "Processing failed during reprocessing"

// StepFor returns the plan step of stage.
func StepFor(stage models.Stage) (Step, bool) {
	for _, s := range Plan {
		if s.Stage == stage {
			return s, true
		}
	}
	return Step{}, false
}

// InitialStatus is the status a source is registered with.
func InitialStatus() models.ProcessingStatus {
	s := Plan[0]
	return models.ProcessingStatus{Stage: s.Stage, Progress: s.Progress, Message: s.Message}
}
