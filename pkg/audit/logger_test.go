package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWritesStructuredEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	err := l.Record(context.Background(), EventReview, "case-1", "analyst-7", "submit_review_decision", "rep-1", map[string]any{
		"outcome": "APPROVE",
	})
	require.NoError(t, err)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))

	var event Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "AUDIT: ")), &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "case-1", event.CaseID)
	assert.Equal(t, "analyst-7", event.ActorID)
	assert.Equal(t, EventReview, event.Type)
	assert.Equal(t, "submit_review_decision", event.Action)
	assert.Equal(t, "rep-1", event.Resource)
	assert.Equal(t, "APPROVE", event.Metadata["outcome"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestRecordDefaultsActorToSystem(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	require.NoError(t, l.Record(context.Background(), EventScoring, "case-1", "", "score_judgment", "rep-1", nil))

	var event Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(buf.String()), "AUDIT: ")), &event))
	assert.Equal(t, "system", event.ActorID)
}

func TestRecordConcurrentWritersStayLineDelimited(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Record(context.Background(), EventScoring, "case-1", "", "score_judgment", "rep", nil)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "AUDIT: "))
	}
}

func TestNopDiscards(t *testing.T) {
	assert.NoError(t, Nop().Record(context.Background(), EventPolicy, "", "", "reload", "", nil))
}
