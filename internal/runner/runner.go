package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/registrycheck/internal/classify"
	"github.com/v0xg/registrycheck/internal/config"
	"github.com/v0xg/registrycheck/internal/creds"
	"github.com/v0xg/registrycheck/internal/extract"
	"github.com/v0xg/registrycheck/internal/preview"
	"github.com/v0xg/registrycheck/internal/progress"
	"github.com/v0xg/registrycheck/internal/result"
	"github.com/v0xg/registrycheck/internal/session"
	"github.com/v0xg/registrycheck/internal/triage"
)

// Preview stages, in the order they are captured
const (
	StagePageLoaded  = "page loaded"
	StageFilled      = "credentials filled"
	StageLoginResult = "login result"
)

// Options configures one login attempt
type Options struct {
	URL              string
	UsernameSelector string
	PasswordSelector string

	NavigationTimeout time.Duration
	SettleDelay       time.Duration // Fixed wait after pressing Enter

	Preview      bool
	PreviewWidth uint
}

// OptionsFrom maps the relevant config sections
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		URL:               cfg.Target.URL,
		UsernameSelector:  cfg.Target.UsernameSelector,
		PasswordSelector:  cfg.Target.PasswordSelector,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		SettleDelay:       cfg.Browser.SettleDelay,
		Preview:           cfg.Preview.Enabled,
		PreviewWidth:      cfg.Preview.MaxWidth,
	}
}

// Runner drives one remote session per credential
type Runner struct {
	driver     session.Driver
	opts       Options
	classifier *classify.Classifier
	extractor  *extract.Extractor
	triage     triage.Provider
	sleep      func(context.Context, time.Duration) error
}

// Option customises a Runner
type Option func(*Runner)

func WithClassifier(c *classify.Classifier) Option {
	return func(r *Runner) { r.classifier = c }
}

func WithExtractor(e *extract.Extractor) Option {
	return func(r *Runner) { r.extractor = e }
}

// WithTriage annotates unrecognised pages with p. A nil p disables triage.
func WithTriage(p triage.Provider) Option {
	return func(r *Runner) { r.triage = p }
}

// WithSleep replaces the settle delay implementation.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *Runner) { r.sleep = sleep }
}

// New creates a Runner using the default classifier and extractor.
func New(driver session.Driver, opts Options, options ...Option) *Runner {
	r := &Runner{
		driver:     driver,
		opts:       opts,
		classifier: classify.Default(),
		extractor:  extract.New(),
		sleep:      sleepContext,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Attempt logs in with cred and returns its record. It never returns an
// error: every failure ends up as a status on the record.
func (r *Runner) Attempt(ctx context.Context, cred creds.Credential, rep progress.Reporter) (rec result.Record) {
	if rep == nil {
		rep = progress.Nop
	}
	id := cred.Identifier
	rec = result.New(id)

	// Browser libraries can panic on a dropped connection
	defer func() {
		if p := recover(); p != nil {
			rec = result.New(id)
			rec.Status = result.SystemError
			progress.Error(rep, id, "Error: %v", p)
		}
	}()

	progress.Info(rep, id, "Starting...")
	if err := r.attempt(ctx, cred, &rec, rep); err != nil {
		rec = result.New(id)
		rec.Status = result.SystemError
		progress.Error(rep, id, "Error: %v", err)
	}
	return rec
}

func (r *Runner) attempt(ctx context.Context, cred creds.Credential, rec *result.Record, rep progress.Reporter) error {
	id := cred.Identifier

	sess, err := r.driver.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			progress.Warn(rep, id, "close session: %v", err)
		}
	}()

	progress.Info(rep, id, "Opening registry page...")
	if err := r.navigate(ctx, sess); err != nil {
		return err
	}
	r.capture(ctx, sess, id, StagePageLoaded, rep)

	if err := sess.WaitElement(ctx, r.opts.UsernameSelector); err != nil {
		return err
	}
	if err := sess.Fill(ctx, r.opts.UsernameSelector, cred.Identifier); err != nil {
		return err
	}
	if err := sess.Fill(ctx, r.opts.PasswordSelector, cred.Secret); err != nil {
		return err
	}
	r.capture(ctx, sess, id, StageFilled, rep)

	progress.Info(rep, id, "Pressing enter...")
	if err := sess.Press(ctx, r.opts.PasswordSelector, session.KeyEnter); err != nil {
		return err
	}

	if err := r.sleep(ctx, r.opts.SettleDelay); err != nil {
		return fmt.Errorf("waiting for login result: %w", err)
	}
	r.capture(ctx, sess, id, StageLoginResult, rep)

	content, err := sess.Content(ctx)
	if err != nil {
		return err
	}

	status, rule := r.classifier.Explain(content)
	rec.Status = status

	switch status {
	case result.WrongCredentials:
		progress.Warn(rep, id, "Wrong credentials")
	case result.Success:
		progress.Success(rep, id, "Logged in (%s)", rule)
		r.extractInto(rec, content, rep)
	default:
		progress.Warn(rep, id, "Unrecognised page after login")
		r.explain(ctx, id, content, rep)
	}
	return nil
}

func (r *Runner) navigate(ctx context.Context, sess session.Session) error {
	navCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.opts.NavigationTimeout > 0 {
		navCtx, cancel = context.WithTimeout(ctx, r.opts.NavigationTimeout)
	}
	defer cancel()
	return sess.Navigate(navCtx, r.opts.URL)
}

// extractInto fills the identity fields. A missing table only warns.
func (r *Runner) extractInto(rec *result.Record, content string, rep progress.Reporter) {
	fields, err := r.extractor.Extract(content)
	if err != nil {
		progress.Warn(rep, rec.Identifier, "Could not read registry data: %v", err)
		return
	}
	rec.FullName = fields[extract.FullName]
	rec.TaxID = fields[extract.TaxID]
	rec.SocialSecurityID = fields[extract.SocialSecurityID]
	rec.TaxOffice = fields[extract.TaxOffice]
	progress.Info(rep, rec.Identifier, "Read %d of %d registry fields", len(fields), len(r.extractor.Aliases))
}

func (r *Runner) explain(ctx context.Context, id, content string, rep progress.Reporter) {
	if r.triage == nil {
		return
	}
	verdict, err := r.triage.Explain(ctx, triage.PageText(content, 0))
	if err != nil {
		progress.Warn(rep, id, "Triage failed: %v", err)
		return
	}
	progress.Info(rep, id, "Triage: %s", verdict)
}

// capture reports a preview thumbnail; screenshot failures are ignored.
func (r *Runner) capture(ctx context.Context, sess session.Session, id, stage string, rep progress.Reporter) {
	if !r.opts.Preview {
		return
	}
	thumb, err := preview.Capture(ctx, sess, preview.Options{MaxWidth: r.opts.PreviewWidth})
	if err != nil {
		return
	}
	progress.Preview(rep, id, stage, thumb)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
