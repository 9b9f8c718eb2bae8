package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/email"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/queue"
)

// ============================================================================
// Notifier
// ============================================================================

type queueNotifier struct {
	q queue.Queue
}

// NewNotifier stores notifications as JSON jobs on q.
func NewNotifier(q queue.Queue) domain.Notifier {
	return &queueNotifier{q: q}
}

func (n *queueNotifier) Enqueue(ctx context.Context, note domain.Notification) error {
	if err := note.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	job, err := n.q.Enqueue(ctx, payload)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	logger.Log.Debug("Notification queued", "kind", note.Kind, "job_id", job.ID)
	return nil
}

// notifyQuietly enqueues and only logs failures. Producers never fail a user
// request because an email could not be queued.
func notifyQuietly(ctx context.Context, notifier domain.Notifier, note domain.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Enqueue(ctx, note); err != nil {
		logger.Log.Error("Failed to queue notification", "kind", note.Kind, "error", err)
	}
}

// ============================================================================
// Dispatcher
// ============================================================================

type DispatcherConfig struct {
	From      string
	TeamEmail string
	SiteURL   string
}

type emailDispatcher struct {
	sender email.Sender
	cfg    DispatcherConfig
	now    func() time.Time
}

func NewNotificationDispatcher(sender email.Sender, cfg DispatcherConfig) domain.NotificationDispatcher {
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	return &emailDispatcher{sender: sender, cfg: cfg, now: time.Now}
}

// JobHandler decodes queued notifications and delivers them. Payloads that
// can never be delivered are logged and dropped instead of retried.
func JobHandler(d domain.NotificationDispatcher) queue.Handler {
	return func(ctx context.Context, job queue.Job) error {
		var note domain.Notification
		if err := json.Unmarshal(job.Payload, &note); err != nil {
			logger.Log.Error("Dropping undecodable notification", "job_id", job.ID, "error", err)
			return nil
		}
		if err := note.Validate(); err != nil {
			logger.Log.Error("Dropping invalid notification", "job_id", job.ID, "error", err)
			return nil
		}
		if err := d.Deliver(ctx, note); err != nil {
			logger.Log.Warn("Notification delivery failed",
				"job_id", job.ID, "kind", note.Kind, "attempt", job.Attempts, "error", err)
			return err
		}
		logger.Log.Info("Notification delivered", "job_id", job.ID, "kind", note.Kind)
		return nil
	}
}

func (d *emailDispatcher) Deliver(ctx context.Context, n domain.Notification) error {
	msgs, err := d.messages(n)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := d.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("send %s email: %w", n.Kind, err)
		}
	}
	return nil
}

func (d *emailDispatcher) messages(n domain.Notification) ([]email.Message, error) {
	switch n.Kind {
	case domain.NotifyBetaSignup:
		return d.betaSignup(n.BetaSignup)
	case domain.NotifyIntakeLink:
		return d.intakeLink(n.IntakeLink)
	case domain.NotifyDenial:
		return d.denial(n.Denial)
	case domain.NotifyCredentials:
		return d.credentials(n.Credentials)
	case domain.NotifyWorkflow:
		return d.workflow(n.Workflow)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidNotification, n.Kind)
}

func (d *emailDispatcher) message(to, subject, template string, data any) (email.Message, error) {
	html, err := email.Render(template, data)
	if err != nil {
		return email.Message{}, err
	}
	return email.Message{From: d.cfg.From, To: []string{to}, Subject: subject, HTML: html}, nil
}

// betaSignup sends the team notice first, so a retry after a failed welcome
// email repeats it.
func (d *emailDispatcher) betaSignup(b *domain.BetaSignupNotice) ([]email.Message, error) {
	platforms := make([]string, 0, len(b.Platforms))
	for _, p := range b.Platforms {
		platforms = append(platforms, domain.PlatformDisplayName(p))
	}
	team, err := d.message(d.cfg.TeamEmail, "🎉 New Beta Request from "+b.Name, email.TemplateBetaTeam, struct {
		Name, Email, BusinessType, VideosPerWeek, PainPoint string
		Platforms                                          []string
	}{b.Name, b.Email, b.BusinessType, b.VideosPerWeek, b.PainPoint, platforms})
	if err != nil {
		return nil, err
	}
	team.ReplyTo = b.Email

	welcome, err := d.message(b.Email, "Welcome to the Autopost Agent Beta! 🎬", email.TemplateBetaWelcome,
		struct{ Name string }{b.Name})
	if err != nil {
		return nil, err
	}
	return []email.Message{team, welcome}, nil
}

func (d *emailDispatcher) intakeLink(i *domain.IntakeLinkNotice) ([]email.Message, error) {
	msg, err := d.message(i.Email, "🎉 You're approved! Complete your intake to get started", email.TemplateIntakeLink,
		struct{ Name, IntakeURL string }{i.Name, d.cfg.SiteURL + "/intake?token=" + i.IntakeToken})
	if err != nil {
		return nil, err
	}
	return []email.Message{msg}, nil
}

func (d *emailDispatcher) denial(n *domain.DenialNotice) ([]email.Message, error) {
	msg, err := d.message(n.Email, "Update on your GrowYourBrand beta request", email.TemplateDenial,
		struct{ Name string }{n.Name})
	if err != nil {
		return nil, err
	}
	return []email.Message{msg}, nil
}

func (d *emailDispatcher) credentials(c *domain.CredentialsNotice) ([]email.Message, error) {
	name := domain.PlatformDisplayName(c.Platform)
	msg, err := d.message(d.cfg.TeamEmail, "🔐 New Credentials Submitted: "+name, email.TemplateCredentials, struct {
		PlatformName, Username, UserEmail, SubmittedAt, AdminURL string
	}{name, c.Username, c.UserEmail, d.now().UTC().Format("Jan 2, 2006 15:04 MST"), d.cfg.SiteURL + "/admin/credentials"})
	if err != nil {
		return nil, err
	}
	return []email.Message{msg}, nil
}

func (d *emailDispatcher) workflow(w *domain.WorkflowNotice) ([]email.Message, error) {
	if w.SkippedSetup {
		msg, err := d.message(d.cfg.TeamEmail, "🔧 Workflow Setup Needed - "+w.UserEmail, email.TemplateWorkflowSkipped,
			struct{ UserEmail, UserName, Frequency string }{w.UserEmail, w.UserName, w.Frequency})
		if err != nil {
			return nil, err
		}
		return []email.Message{msg}, nil
	}

	source := domain.WorkflowPlatformName(w.SourcePlatform)
	dests := make([]string, 0, len(w.Destinations))
	for _, p := range w.Destinations {
		dests = append(dests, domain.WorkflowPlatformName(p))
	}
	msg, err := d.message(d.cfg.TeamEmail, "🔄 New Workflow to Build - "+source+" → Multiple", email.TemplateWorkflow, struct {
		UserEmail, UserName, SourceName, DestinationNames, Frequency string
	}{w.UserEmail, w.UserName, source, strings.Join(dests, ", "), w.Frequency})
	if err != nil {
		return nil, err
	}
	return []email.Message{msg}, nil
}
