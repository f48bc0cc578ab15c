package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalize_NoErrorsIsSuccess(t *testing.T) {
	run := &PipelineRun{}
	run.Finalize()
	assert.Equal(t, RunStatusSuccess, run.Status)
}

func TestFinalize_ErrorsDowngradeToPartial(t *testing.T) {
	run := &PipelineRun{}
	run.AddError("extraction: bad json")
	run.Finalize()
	assert.Equal(t, RunStatusPartial, run.Status)
}

func TestFinalize_FailedStaysFailed(t *testing.T) {
	run := &PipelineRun{Status: RunStatusFailed}
	run.AddError("fetch: connection refused")
	run.Finalize()
	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestAddError_PreservesOrder(t *testing.T) {
	run := &PipelineRun{}
	run.AddError("first")
	run.AddError("second")
	assert.Equal(t, []string{"first", "second"}, run.Errors)
}
