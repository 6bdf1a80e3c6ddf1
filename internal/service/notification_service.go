package service

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/kitcycle/kitcycle-api/internal/models"
	"github.com/kitcycle/kitcycle-api/pkg/jobs"
	"github.com/kitcycle/kitcycle-api/pkg/mailer"
)

//go:embed templates/*.tmpl
var emailTemplates embed.FS

// Subject lines keyed by template name.
var emailSubjects = map[string]string{
	models.TemplateSubmissionReceived:  "We received your school submission",
	models.TemplateSubmissionAdmin:     "New school submission awaiting review",
	models.TemplateSubmissionApproved:  "Your school submission was approved",
	models.TemplateSubmissionRejected:  "Your school submission was not approved",
	models.TemplateSubmissionDuplicate: "Your school is already on KitCycle",
	models.TemplateApprovalReceived:    "We received your school request",
	models.TemplateApprovalAdmin:       "New school request awaiting review",
	models.TemplateApprovalApproved:    "Your school request was approved",
	models.TemplateApprovalDenied:      "Your school request was not approved",
	models.TemplateListingRequested:    "Someone is interested in your listing",
	models.TemplateListingAccepted:     "Your item request was accepted",
	models.TemplateListingDeclined:     "Your item request was declined",
}

type emailLogStore interface {
	Create(ctx context.Context, log *models.EmailLog) error
}

// sentMarker flips a workflow row's emails_sent flag once its notification
// batch has been delivered.
type sentMarker interface {
	MarkEmailsSent(ctx context.Context, id string) error
}

// NotificationConfig carries the addressing details for outbound email.
type NotificationConfig struct {
	AdminName  string
	AdminEmail string
	Workers    int
	Retries    int
}

// NotificationService renders workflow emails and dispatches them on a
// background queue. Delivery is best-effort: enqueue and send failures are
// logged and never surface to the request that triggered them.
type NotificationService struct {
	mail        mailer.Mailer
	logs        emailLogStore
	submissions sentMarker
	approvals   sentMarker
	tmpl        *template.Template
	queue       *jobs.Queue
	metrics     *MetricsService
	cfg         NotificationConfig
	logger      *zap.Logger
}

type outboundEmail struct {
	Template string
	Message  mailer.Message
	// Sent marks messages already delivered so a batch retry only repeats
	// the failed ones.
	Sent bool
}

type notificationPayload struct {
	Resource   string
	ResourceID string
	Track      bool
	Emails     []outboundEmail
}

const (
	resourceSubmission = "school_submission"
	resourceApproval   = "school_approval_request"
	resourceListing    = "listing_request"
)

// NewNotificationService parses the embedded templates and prepares the
// dispatch queue. Call Start before enqueueing events.
func NewNotificationService(mail mailer.Mailer, logs emailLogStore, submissions, approvals sentMarker, metrics *MetricsService, cfg NotificationConfig, logger *zap.Logger) (*NotificationService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.ParseFS(emailTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	s := &NotificationService{
		mail:        mail,
		logs:        logs,
		submissions: submissions,
		approvals:   approvals,
		tmpl:        tmpl,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
	}
	s.queue = jobs.NewQueue("notifications", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s, nil
}

// Start begins background dispatch.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// SubmissionReceived notifies the submitter and alerts the admin inbox.
func (s *NotificationService) SubmissionReceived(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User) {
	emails := []outboundEmail{}
	if msg, ok := s.render(models.TemplateSubmissionReceived, submitter.FullName, submitter.Email, map[string]interface{}{
		"Name":       submitter.FullName,
		"SchoolName": sub.SchoolName,
	}); ok {
		emails = append(emails, outboundEmail{Template: models.TemplateSubmissionReceived, Message: msg})
	}
	if msg, ok := s.render(models.TemplateSubmissionAdmin, s.cfg.AdminName, s.cfg.AdminEmail, map[string]interface{}{
		"SchoolName": sub.SchoolName,
		"Address":    sub.Address,
		"Level":      string(sub.Level),
		"Reason":     sub.SubmissionReason,
		"ResourceID": sub.ID,
	}); ok {
		emails = append(emails, outboundEmail{Template: models.TemplateSubmissionAdmin, Message: msg})
	}
	s.enqueue(notificationPayload{Resource: resourceSubmission, ResourceID: sub.ID, Track: true, Emails: emails})
}

// SubmissionDecided notifies the submitter of the admin decision.
func (s *NotificationService) SubmissionDecided(ctx context.Context, sub *models.SchoolSubmission, submitter *models.User, existingSchoolName string) {
	var name string
	data := map[string]interface{}{
		"Name":       submitter.FullName,
		"SchoolName": sub.SchoolName,
	}
	switch sub.Status {
	case models.SubmissionStatusApproved:
		name = models.TemplateSubmissionApproved
	case models.SubmissionStatusRejected:
		name = models.TemplateSubmissionRejected
		if sub.RejectionReason != nil {
			data["Reason"] = *sub.RejectionReason
		}
	case models.SubmissionStatusDuplicate:
		name = models.TemplateSubmissionDuplicate
		data["ExistingSchool"] = existingSchoolName
	default:
		return
	}
	msg, ok := s.render(name, submitter.FullName, submitter.Email, data)
	if !ok {
		return
	}
	s.enqueue(notificationPayload{
		Resource:   resourceSubmission,
		ResourceID: sub.ID,
		Track:      true,
		Emails:     []outboundEmail{{Template: name, Message: msg}},
	})
}

// ApprovalReceived notifies the requester and alerts the admin inbox.
func (s *NotificationService) ApprovalReceived(ctx context.Context, req *models.SchoolApprovalRequest, user *models.User) {
	emails := []outboundEmail{}
	if msg, ok := s.render(models.TemplateApprovalReceived, user.FullName, user.Email, map[string]interface{}{
		"Name":  user.FullName,
		"Count": len(req.RequestedSchoolIDs),
	}); ok {
		emails = append(emails, outboundEmail{Template: models.TemplateApprovalReceived, Message: msg})
	}
	if msg, ok := s.render(models.TemplateApprovalAdmin, s.cfg.AdminName, s.cfg.AdminEmail, map[string]interface{}{
		"Name":       user.FullName,
		"Email":      user.Email,
		"Count":      len(req.RequestedSchoolIDs),
		"Reason":     req.Reason,
		"ResourceID": req.ID,
	}); ok {
		emails = append(emails, outboundEmail{Template: models.TemplateApprovalAdmin, Message: msg})
	}
	s.enqueue(notificationPayload{Resource: resourceApproval, ResourceID: req.ID, Track: true, Emails: emails})
}

// ApprovalDecided notifies the requester of the admin decision.
func (s *NotificationService) ApprovalDecided(ctx context.Context, req *models.SchoolApprovalRequest, user *models.User) {
	var name string
	data := map[string]interface{}{"Name": user.FullName}
	switch req.Status {
	case models.ApprovalStatusApproved:
		name = models.TemplateApprovalApproved
		data["Count"] = len(req.ApprovedSchoolIDs)
	case models.ApprovalStatusDenied:
		name = models.TemplateApprovalDenied
		if req.DenialReason != nil {
			data["Reason"] = *req.DenialReason
		}
		if req.SuggestedNextSteps != nil {
			data["NextSteps"] = *req.SuggestedNextSteps
		}
	default:
		return
	}
	msg, ok := s.render(name, user.FullName, user.Email, data)
	if !ok {
		return
	}
	s.enqueue(notificationPayload{
		Resource:   resourceApproval,
		ResourceID: req.ID,
		Track:      true,
		Emails:     []outboundEmail{{Template: name, Message: msg}},
	})
}

// ListingRequested notifies the listing owner of a new item request.
func (s *NotificationService) ListingRequested(ctx context.Context, request *models.ListingRequest, listing *models.Listing, owner, requester *models.User) {
	msg, ok := s.render(models.TemplateListingRequested, owner.FullName, owner.Email, map[string]interface{}{
		"Name":          owner.FullName,
		"RequesterName": requester.FullName,
		"ItemLabel":     listingLabel(listing),
		"Message":       request.Message,
	})
	if !ok {
		return
	}
	s.enqueue(notificationPayload{
		Resource:   resourceListing,
		ResourceID: request.ID,
		Emails:     []outboundEmail{{Template: models.TemplateListingRequested, Message: msg}},
	})
}

// ListingRequestResponded notifies the requester of the owner's decision.
func (s *NotificationService) ListingRequestResponded(ctx context.Context, request *models.ListingRequest, listing *models.Listing, requester *models.User) {
	var name string
	switch request.Status {
	case models.ListingRequestAccepted:
		name = models.TemplateListingAccepted
	case models.ListingRequestDeclined:
		name = models.TemplateListingDeclined
	default:
		return
	}
	msg, ok := s.render(name, requester.FullName, requester.Email, map[string]interface{}{
		"Name":      requester.FullName,
		"ItemLabel": listingLabel(listing),
	})
	if !ok {
		return
	}
	s.enqueue(notificationPayload{
		Resource:   resourceListing,
		ResourceID: request.ID,
		Emails:     []outboundEmail{{Template: name, Message: msg}},
	})
}

func listingLabel(listing *models.Listing) string {
	return fmt.Sprintf("%s, size %s", listing.ItemType, listing.Size)
}

func (s *NotificationService) render(name, toName, toEmail string, data map[string]interface{}) (mailer.Message, bool) {
	if toEmail == "" {
		return mailer.Message{}, false
	}
	var body strings.Builder
	if err := s.tmpl.ExecuteTemplate(&body, name+".tmpl", data); err != nil {
		s.logger.Error("failed to render email template", zap.String("template", name), zap.Error(err))
		return mailer.Message{}, false
	}
	return mailer.Message{
		ToName:   toName,
		ToEmail:  toEmail,
		Subject:  emailSubjects[name],
		TextBody: body.String(),
	}, true
}

func (s *NotificationService) enqueue(payload notificationPayload) {
	if len(payload.Emails) == 0 {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      fmt.Sprintf("%s:%s", payload.Resource, payload.ResourceID),
		Type:    "email",
		Payload: &payload,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("resource", payload.Resource),
			zap.String("resource_id", payload.ResourceID),
			zap.Error(err))
	}
}

// process delivers one notification batch. A partial failure returns an
// error so the queue retries the batch; messages that already went out are
// skipped on the retry.
func (s *NotificationService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(*notificationPayload)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}

	var firstErr error
	for i := range payload.Emails {
		email := &payload.Emails[i]
		if email.Sent {
			continue
		}
		err := s.mail.Send(ctx, email.Message)
		s.recordLog(ctx, payload, email, err)
		if err != nil {
			s.metrics.RecordEmailResult("failed")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			email.Sent = true
			s.metrics.RecordEmailResult("sent")
		}
	}
	if firstErr != nil {
		return firstErr
	}

	if payload.Track {
		if err := s.markSent(ctx, payload.Resource, payload.ResourceID); err != nil {
			s.logger.Warn("failed to mark emails sent",
				zap.String("resource", payload.Resource),
				zap.String("resource_id", payload.ResourceID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) markSent(ctx context.Context, resource, id string) error {
	switch resource {
	case resourceSubmission:
		return s.submissions.MarkEmailsSent(ctx, id)
	case resourceApproval:
		return s.approvals.MarkEmailsSent(ctx, id)
	}
	return nil
}

func (s *NotificationService) recordLog(ctx context.Context, payload *notificationPayload, email *outboundEmail, sendErr error) {
	if s.logs == nil {
		return
	}
	entry := &models.EmailLog{
		Recipient:  email.Message.ToEmail,
		Template:   email.Template,
		Subject:    email.Message.Subject,
		Resource:   payload.Resource,
		ResourceID: &payload.ResourceID,
		Status:     models.EmailStatusSent,
		CreatedAt:  time.Now().UTC(),
	}
	if sendErr != nil {
		entry.Status = models.EmailStatusFailed
		msg := sendErr.Error()
		entry.Error = &msg
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to persist email log", zap.Error(err))
	}
}
