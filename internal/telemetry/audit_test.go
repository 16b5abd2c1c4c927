package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"teamchat/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.teamchat", "teamchat", "test")
	emitter.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	uid := "u1"

	pub.On("Publish", mock.Anything, "audit.teamchat", mock.MatchedBy(func(ev AuditEnvelope) bool {
		return ev.EventType == "audit_log" &&
			ev.Service == "teamchat" &&
			ev.RequestID == "req-1" &&
			ev.TraceID == "" &&
			ev.UserID != nil && *ev.UserID == "u1" &&
			ev.Payload.Level == "INFO" &&
			ev.OccurredAt == "2024-05-01T09:00:00Z"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "chat created", "req-1", &uid)
	pub.AssertExpectations(t)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, "k", mock.Anything).Return(assert.AnError).Once()

	emitter := NewAuditEmitter(pub, "k", "teamchat", "test")
	assert.NotPanics(t, func() { emitter.Emit(context.Background(), "WARN", "x", "r", nil) })
	pub.AssertExpectations(t)

	var nilEmitter *AuditEmitter
	assert.NotPanics(t, func() { nilEmitter.Emit(context.Background(), "INFO", "x", "r", nil) })
}
