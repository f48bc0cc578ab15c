package domain

// RunStatus is the overall outcome of one pipeline invocation
type RunStatus string

const (
	// RunStatusSuccess means every stage completed without error
	RunStatusSuccess RunStatus = "success"
	// RunStatusPartial means raw content was persisted but at least one
	// enrichment stage reported an error
	RunStatusPartial RunStatus = "partial"
	// RunStatusFailed means the fetch or raw persistence itself failed
	RunStatusFailed RunStatus = "failed"
)

// PipelineRun is the result of one ingestion pipeline invocation
type PipelineRun struct {
	ScrapedContentID string
	RegulationID     string
	ChunkIDs         []string
	Status           RunStatus
	Errors           []string
}

// AddError appends a stage-level error message, preserving order.
func (r *PipelineRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Finalize derives the overall status: failed runs keep their status,
// otherwise any recorded error downgrades success to partial.
func (r *PipelineRun) Finalize() {
	if r.Status == RunStatusFailed {
		return
	}
	if len(r.Errors) > 0 {
		r.Status = RunStatusPartial
		return
	}
	r.Status = RunStatusSuccess
}
