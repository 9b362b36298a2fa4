package main

import (
	"bytes"
	"testing"

	"eventflow/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRenderLedger(t *testing.T) {
	counts := []domain.LedgerCount{
		{EventID: "ev-ok", Capacity: 10, Recorded: 3, Actual: 3},
		{EventID: "ev-drift", Capacity: 0, Recorded: 5, Actual: 2},
	}

	var buf bytes.Buffer
	n := renderLedger(&buf, counts, false)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "ev-drift")
	assert.Contains(t, buf.String(), "unlimited")
	assert.NotContains(t, buf.String(), "ev-ok")

	buf.Reset()
	renderLedger(&buf, counts, true)
	assert.Contains(t, buf.String(), "ev-ok")
}
