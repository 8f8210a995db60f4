package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore captures upsert/insert calls without a database.
type fakeStore struct {
	upserted       *models.ErrorGroup
	reopenResolved bool
	event          *models.ErrorEvent
	upsertErr      error
	eventErr       error
	created        bool
}

func (f *fakeStore) UpsertErrorGroup(_ context.Context, g *models.ErrorGroup, reopen bool) (*models.ErrorGroup, bool, error) {
	if f.upsertErr != nil {
		return nil, false, f.upsertErr
	}
	f.upserted = g
	f.reopenResolved = reopen
	return g, f.created, nil
}

func (f *fakeStore) CreateErrorEvent(_ context.Context, e *models.ErrorEvent) error {
	if f.eventErr != nil {
		return f.eventErr
	}
	f.event = e
	return nil
}

func TestRecord_NewGroup(t *testing.T) {
	fs := &fakeStore{created: true}
	svc := NewService(fs, true)

	res, err := svc.Record(context.Background(), Event{
		Message:  "DB timeout",
		Severity: models.SeverityError,
		Context:  map[string]string{"name": "DBError"},
	})
	require.NoError(t, err)

	assert.True(t, res.NewGroup)
	assert.NotEqual(t, uuid.Nil, res.EventID)
	require.NotNil(t, fs.upserted)
	assert.Equal(t, "DBError", fs.upserted.Name)
	assert.Equal(t, "DB timeout", fs.upserted.Message)
	assert.Equal(t, models.GroupStatusOpen, fs.upserted.Status)
	assert.Equal(t, 1, fs.upserted.Count)
	assert.True(t, fs.reopenResolved)

	require.NotNil(t, fs.event)
	assert.Equal(t, fs.upserted.ID, fs.event.GroupID)
	assert.Equal(t, models.SeverityError, fs.event.Severity)
}

func TestRecord_ExplicitFingerprintUsedVerbatim(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs, true)

	_, err := svc.Record(context.Background(), Event{
		Message: "boom",
		Context: map[string]string{"fingerprint": "my-stable-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "my-stable-key", fs.upserted.Fingerprint)
}

func TestRecord_SameInputSameFingerprint(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs, true)

	_, err := svc.Record(context.Background(), Event{Message: "DB timeout"})
	require.NoError(t, err)
	fp1 := fs.upserted.Fingerprint

	_, err = svc.Record(context.Background(), Event{Message: "DB timeout"})
	require.NoError(t, err)
	assert.Equal(t, fp1, fs.upserted.Fingerprint)
}

func TestRecord_DefaultsSeverityToError(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs, true)

	_, err := svc.Record(context.Background(), Event{Message: "boom"})
	require.NoError(t, err)
	assert.Equal(t, models.SeverityError, fs.event.Severity)
}

func TestRecord_RejectsInvalidSeverity(t *testing.T) {
	svc := NewService(&fakeStore{}, true)

	_, err := svc.Record(context.Background(), Event{Message: "boom", Severity: "fatal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "severity")
}

func TestRecord_RejectsEmptyMessage(t *testing.T) {
	svc := NewService(&fakeStore{}, true)

	_, err := svc.Record(context.Background(), Event{})
	require.Error(t, err)
}

func TestRecord_UsesEventTimestamp(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs, true)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.Record(context.Background(), Event{Message: "boom", Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, ts, fs.event.CreatedAt)
	assert.Equal(t, ts, fs.upserted.LastSeenAt)
}

func TestRecord_UpsertFailureSurfacedAndEventNotWritten(t *testing.T) {
	fs := &fakeStore{upsertErr: errors.New("connection refused")}
	svc := NewService(fs, true)

	_, err := svc.Record(context.Background(), Event{Message: "boom"})
	require.Error(t, err)
	assert.Nil(t, fs.event)
}

func TestRecord_OptionalFieldsNilWhenAbsent(t *testing.T) {
	fs := &fakeStore{}
	svc := NewService(fs, true)

	_, err := svc.Record(context.Background(), Event{Message: "boom"})
	require.NoError(t, err)
	assert.Nil(t, fs.event.Stack)
	assert.Nil(t, fs.event.URL)
	assert.Nil(t, fs.event.UserRef)
}
