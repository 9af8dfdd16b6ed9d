package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to RunStatus }{
		{RunDraft, RunCalculating},
		{RunDraft, RunPendingApproval},
		{RunDraft, RunCancelled},
		{RunCalculating, RunDraft},
		{RunPendingApproval, RunApproved},
		{RunPendingApproval, RunCancelled},
		{RunApproved, RunPaid},
		{RunApproved, RunCancelled},
		{RunPaid, RunCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to RunStatus }{
		{RunDraft, RunApproved},
		{RunDraft, RunPaid},
		{RunPendingApproval, RunDraft},
		{RunPendingApproval, RunPaid},
		{RunApproved, RunDraft},
		{RunApproved, RunPendingApproval},
		{RunPaid, RunDraft},
		{RunPaid, RunApproved},
		{RunCancelled, RunDraft},
		{RunCancelled, RunApproved},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestYTDAccumulatorAdd(t *testing.T) {
	a := YTDAccumulator{Gross: d("1000.00"), CPPBase: d("50.00"), EI: d("16.40")}
	b := YTDAccumulator{Gross: d("1000.00"), CPPBase: d("50.00"), EI: d("16.40")}

	sum := a.Add(b)
	assert.True(t, sum.Gross.Equal(d("2000.00")))
	assert.True(t, sum.CPPBase.Equal(d("100.00")))
	assert.True(t, sum.EI.Equal(d("32.80")))
	// Add returns a copy; the receiver is untouched.
	assert.True(t, a.Gross.Equal(d("1000.00")))
}
