package pipeline

import (
	"context"
	"os"

	"github.com/huzaifa321s/proposal-maker/llm"
	"github.com/huzaifa321s/proposal-maker/logger"
	"github.com/huzaifa321s/proposal-maker/nlp"
	"github.com/huzaifa321s/proposal-maker/progress"
	"github.com/huzaifa321s/proposal-maker/transcribe"
)

// Polisher is the polish stage seen from the orchestrator.
type Polisher interface {
	Polish(ctx context.Context, raw string, emit progress.Func) llm.PolishResult
}

// Extractor is the structured extraction stage seen from the orchestrator.
type Extractor interface {
	Extract(ctx context.Context, polished string) (*nlp.BusinessExtract, *nlp.ExtractError)
}

// Pipeline sequences transcription, polishing, and extraction for one
// uploaded file, publishing a progress event before each stage's work. It is
// the only component aware of all the others.
type Pipeline struct {
	hub         *progress.Hub
	transcriber transcribe.Transcriber
	polisher    Polisher
	extractor   Extractor
	log         *logger.Logger
}

func New(hub *progress.Hub, transcriber transcribe.Transcriber, polisher Polisher, extractor Extractor) *Pipeline {
	return &Pipeline{
		hub:         hub,
		transcriber: transcriber,
		polisher:    polisher,
		extractor:   extractor,
		log:         logger.New(),
	}
}

// Run executes the full pipeline for one uploaded file. It is spawned as a
// background goroutine by the upload handler; every result, including
// failure, travels over the progress hub. The temp upload is removed on every
// exit path.
func (p *Pipeline) Run(ctx context.Context, jobID, filePath string) {
	job := NewJob(jobID, filePath)
	log := p.log.WithField("job_id", jobID)
	defer p.removeUpload(filePath)

	_ = job.Transition(StatusUploading)
	p.hub.Publish("upload_status", map[string]any{"step": "Uploading audio for transcription..."})
	p.hub.Publish("upload_status", map[string]any{"step": "Upload complete"})

	_ = job.Transition(StatusTranscribing)
	result, err := p.transcriber.Transcribe(ctx, filePath, p.hub.Publish)
	if err != nil {
		p.fail(job, "transcription", err)
		return
	}
	p.hub.Publish("transcription_status", map[string]any{"status": "completed"})

	transcript := result.Transcript()
	log.WithField("transcript_len", len(transcript)).Info("transcription finished")

	p.finish(ctx, job, transcript)
}

// RunFromUtterances covers the live-stream variant: the utterances were
// already collected over the duplex session, so only the polish and
// extraction stages remain.
func (p *Pipeline) RunFromUtterances(ctx context.Context, jobID string, utterances []transcribe.Utterance) {
	job := NewJob(jobID, "")
	result := &transcribe.Result{Utterances: utterances}
	p.hub.Publish("transcription_status", map[string]any{"status": "completed"})
	p.finish(ctx, job, result.Transcript())
}

// finish runs the tail shared by both entry points: polish, extract, report.
func (p *Pipeline) finish(ctx context.Context, job *Job, transcript string) {
	log := p.log.WithField("job_id", job.ID)

	_ = job.Transition(StatusPolishing)
	p.hub.Publish("pipeline_status", map[string]any{"step": "Polishing transcript..."})
	polished := p.polisher.Polish(ctx, transcript, p.hub.Publish)
	if polished.UsedFallback {
		log.Warn("polish stage fell back to the raw transcript")
	}

	_ = job.Transition(StatusExtracting)
	p.hub.Publish("pipeline_status", map[string]any{"step": "Extracting business details..."})
	extract, extractErr := p.extractor.Extract(ctx, polished.Text)

	var extracted any = extract
	if extractErr != nil {
		log.WithField("extract_error", extractErr.Error).Warn("extraction degraded")
		extracted = extractErr
	}

	_ = job.Transition(StatusDone)
	p.hub.Publish("complete", map[string]any{
		"success": true,
		"data": map[string]any{
			"polished":     polished.Text,
			"extracted":    extracted,
			"usedFallback": polished.UsedFallback,
		},
	})
	log.Info("pipeline run complete")
}

// fail marks the run terminal and reports the triggering error over the hub.
// Granular failure detail is only visible to listeners; the original HTTP
// call has usually returned already.
func (p *Pipeline) fail(job *Job, stage string, err error) {
	_ = job.Transition(StatusFailed)
	p.log.WithField("job_id", job.ID).WithField("stage", stage).WithError(err).Error("pipeline run failed")
	p.hub.Publish("error", map[string]any{"message": err.Error()})
}

// removeUpload deletes the temp file. Cleanup failure is logged, never fatal.
func (p *Pipeline) removeUpload(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		p.log.WithError(err).Warn("failed to remove uploaded file")
	}
}
