package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/pkg/jobs"
	"github.com/kitcycle/kitcycle-api/pkg/mailer"
)

type mailerStub struct {
	failFor map[string]error
	sent    []string
}

func (m *mailerStub) Send(_ context.Context, msg mailer.Message) error {
	if err := m.failFor[msg.ToEmail]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg.ToEmail)
	return nil
}

type emailLogStub struct {
	entries []*models.EmailLog
}

func (s *emailLogStub) Create(_ context.Context, log *models.EmailLog) error {
	s.entries = append(s.entries, log)
	return nil
}

type sentMarkerStub struct {
	marked []string
}

func (s *sentMarkerStub) MarkEmailsSent(_ context.Context, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

func newTestNotificationService(t *testing.T, mail mailer.Mailer, logs emailLogStore, marker sentMarker) *NotificationService {
	t.Helper()
	svc, err := NewNotificationService(mail, logs, marker, marker, nil, NotificationConfig{
		AdminName:  "KitCycle Admin",
		AdminEmail: "admin@kitcycle.ie",
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestNotificationServicePartialFailureRetriesOnlyUnsent(t *testing.T) {
	mail := &mailerStub{failFor: map[string]error{
		"admin@kitcycle.ie": errors.New("smtp 550 mailbox unavailable"),
	}}
	logs := &emailLogStub{}
	marker := &sentMarkerStub{}
	svc := newTestNotificationService(t, mail, logs, marker)

	payload := &notificationPayload{
		Resource:   resourceSubmission,
		ResourceID: "sub-1",
		Track:      true,
		Emails: []outboundEmail{
			{Template: models.TemplateSubmissionReceived, Message: mailer.Message{ToName: "Parent One", ToEmail: "parent@example.ie", Subject: "We received your school submission"}},
			{Template: models.TemplateSubmissionAdmin, Message: mailer.Message{ToName: "KitCycle Admin", ToEmail: "admin@kitcycle.ie", Subject: "New school submission awaiting review"}},
		},
	}
	job := jobs.Job{ID: "school_submission:sub-1", Type: "email", Payload: payload}

	err := svc.process(context.Background(), job)
	require.Error(t, err)
	require.Equal(t, []string{"parent@example.ie"}, mail.sent)
	require.Len(t, logs.entries, 2)
	require.Equal(t, models.EmailStatusSent, logs.entries[0].Status)
	require.Equal(t, models.EmailStatusFailed, logs.entries[1].Status)
	require.NotNil(t, logs.entries[1].Error)
	require.Empty(t, marker.marked)

	// On the retry only the failed message goes out again.
	mail.failFor = nil
	err = svc.process(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, []string{"parent@example.ie", "admin@kitcycle.ie"}, mail.sent)
	require.Len(t, logs.entries, 3)
	require.Equal(t, models.EmailStatusSent, logs.entries[2].Status)
	require.Equal(t, []string{"sub-1"}, marker.marked)
}

func TestNotificationServiceFailureDoesNotSurfaceToCaller(t *testing.T) {
	mail := &mailerStub{failFor: map[string]error{
		"user-1@example.ie": errors.New("smtp connection refused"),
	}}
	notifier := newTestNotificationService(t, mail, &emailLogStub{}, &sentMarkerStub{})

	repo := newSubmissionRepoStub()
	svc := NewSubmissionService(repo, newSchoolDirectoryStub(), &userFinderStub{}, nil, notifier, nil, nil)

	// The dispatch queue was never started, so nothing can be delivered; the
	// submission itself must still succeed.
	sub, err := svc.Create(context.Background(), validSubmissionRequest(), parentClaims("user-1"))
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, sub.Status)
	require.Len(t, repo.subs, 1)
}
