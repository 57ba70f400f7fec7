package listener

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/Koyo-os/questionnaire-service/internal/entity"
	"github.com/Koyo-os/questionnaire-service/internal/errortree"
	"github.com/Koyo-os/questionnaire-service/internal/fieldpath"
	"github.com/Koyo-os/questionnaire-service/internal/service"
	"github.com/Koyo-os/questionnaire-service/pkg/config"
	"github.com/Koyo-os/questionnaire-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, values url.Values) (service.Outcome, error) {
	args := m.Called(ctx, values)
	return args.Get(0).(service.Outcome), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, payload any, routingKey string) error {
	args := m.Called(ctx, payload, routingKey)
	return args.Error(0)
}

func setupListener() (*Listener, chan entity.Event, *MockSubmitter, *MockPublisher) {
	in := make(chan entity.Event, 4)
	submitter := &MockSubmitter{}
	publisher := &MockPublisher{}
	return Init(in, logger.Nop(), config.Default(), submitter, publisher), in, submitter, publisher
}

func submitEvent(payload string) entity.Event {
	return *entity.NewEvent(config.Default().Reqs.SubmitRequestType, []byte(payload))
}

// run feeds events and waits for the listener to drain them.
func run(t *testing.T, l *Listener, in chan entity.Event, events ...entity.Event) {
	t.Helper()

	for _, e := range events {
		in <- e
	}
	close(in)

	done := make(chan struct{})
	go func() {
		l.Listen(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_RejectionIsPublished(t *testing.T) {
	l, in, submitter, publisher := setupListener()
	tree := errortree.Build([]errortree.Entry{{Path: fieldpath.Of("title"), Message: "Title required"}})
	event := submitEvent(`{"title":"","questions.0.name":["a","b"]}`)

	submitter.On("Submit", mock.Anything, url.Values{"title": {""}, "questions.0.name": {"a", "b"}}).
		Return(service.Outcome{Status: service.Rejected, Errors: tree}, nil)
	publisher.On("Publish", mock.Anything, entity.RejectedPayload{RequestID: event.ID, Errors: tree}, entity.EventQuestionnaireRejected).
		Return(nil)

	run(t, l, in, event)

	submitter.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestListener_AcceptedPublishesNothing(t *testing.T) {
	l, in, submitter, publisher := setupListener()

	submitter.On("Submit", mock.Anything, mock.Anything).
		Return(service.Outcome{Status: service.Accepted, ID: "1"}, nil)

	run(t, l, in, submitEvent(`{"title":"Survey"}`))

	submitter.AssertNumberOfCalls(t, "Submit", 1)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestListener_SkipsBadEvents(t *testing.T) {
	l, in, submitter, publisher := setupListener()

	submitter.On("Submit", mock.Anything, mock.Anything).Return(service.Outcome{}, errors.New("database error"))

	run(t, l, in,
		submitEvent(`not json`),
		*entity.NewEvent("some.other.type", []byte(`{}`)),
		submitEvent(`{"title":"x"}`),
	)

	submitter.AssertNumberOfCalls(t, "Submit", 1)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestListener_StopsOnContext(t *testing.T) {
	l, _, _, _ := setupListener()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		l.Listen(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestDecodeValues(t *testing.T) {
	values, err := decodeValues([]byte(`{"a":"1","b":["x","y"],"c":null,"d":2}`))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"a": {"1"}, "b": {"x", "y"}, "c": {""}, "d": {"2"}}, values)

	_, err = decodeValues([]byte(`{"a":[1]}`))
	assert.Error(t, err)
}
