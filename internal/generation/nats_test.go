package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPublisher 记录发布的消息
type MockPublisher struct {
	Subjects []string
	Payloads [][]byte
	Err      error
}

func (m *MockPublisher) Publish(subject string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Subjects = append(m.Subjects, subject)
	m.Payloads = append(m.Payloads, data)
	return nil
}

func TestNATSNotifier_PublishesJSON(t *testing.T) {
	pub := &MockPublisher{}
	n := &NATSNotifier{Conn: pub, Subject: "sitedeploy.generation"}

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Minute)
	evt := Event{WebsiteID: "site1", RunID: "r1", Status: StatusFail, Step: StepUpload, Reason: "boom", StartTime: start, EndTime: &end}
	require.NoError(t, n.Notify(context.Background(), evt))

	require.Equal(t, []string{"sitedeploy.generation.site1"}, pub.Subjects)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(pub.Payloads[0], &payload))
	assert.Equal(t, "site1", payload["id"])
	assert.Equal(t, "r1", payload["runId"])
	assert.Equal(t, "FAIL", payload["status"])
	assert.Equal(t, "UPLOAD", payload["step"])
	assert.Equal(t, "boom", payload["reason"])
	assert.Equal(t, "2024-03-01T10:00:00Z", payload["startDate"])
	assert.Equal(t, "2024-03-01T10:01:00Z", payload["endDate"])
}

func TestNATSNotifier_OmitsEndDateWhileProcessing(t *testing.T) {
	pub := &MockPublisher{}
	n := &NATSNotifier{Conn: pub, Subject: "s"}

	require.NoError(t, n.Notify(context.Background(), Event{WebsiteID: "site1", Status: StatusProcessing, Step: StepBuild}))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(pub.Payloads[0], &payload))
	_, ok := payload["endDate"]
	assert.False(t, ok)
}

func TestNATSNotifier_PublishError(t *testing.T) {
	n := &NATSNotifier{Conn: &MockPublisher{Err: errors.New("nats: connection closed")}, Subject: "s"}
	err := n.Notify(context.Background(), Event{WebsiteID: "site1"})
	assert.ErrorContains(t, err, "connection closed")
}

func TestDialNATS_Unreachable(t *testing.T) {
	_, _, err := DialNATS("nats://127.0.0.1:1", "s")
	assert.Error(t, err)
}
