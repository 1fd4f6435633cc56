package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/v0xg/registrycheck/internal/creds"
	"github.com/v0xg/registrycheck/internal/progress"
	"github.com/v0xg/registrycheck/internal/result"
)

// ErrNoValidInput means no input line held a "username password" pair.
var ErrNoValidInput = errors.New("no valid input: expected one \"username password\" pair per line")

// Attempter runs a single login attempt. *runner.Runner implements it.
type Attempter interface {
	Attempt(ctx context.Context, cred creds.Credential, rep progress.Reporter) result.Record
}

// Result is the outcome of a whole batch, records in input order.
type Result struct {
	ID       string          `json:"id"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Records  []result.Record `json:"records"`
}

// Summary renders per-status counts, e.g. "Success: 2, Error: 1".
func (r *Result) Summary() string {
	counts := result.Tally(r.Records)
	var parts []string
	for _, s := range []result.Status{result.Success, result.WrongCredentials, result.UnknownError, result.SystemError} {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", s, n))
		}
	}
	return strings.Join(parts, ", ")
}

// Orchestrator runs attempts one after another
type Orchestrator struct {
	attempter Attempter
	reporter  progress.Reporter
}

// New returns an Orchestrator reporting to rep (progress.Nop when nil).
func New(a Attempter, rep progress.Reporter) *Orchestrator {
	if rep == nil {
		rep = progress.Nop
	}
	return &Orchestrator{attempter: a, reporter: rep}
}

// RunText parses text and runs the resulting credentials.
func (o *Orchestrator) RunText(ctx context.Context, text string) (*Result, error) {
	return o.Run(ctx, creds.Parse(text))
}

// Run makes exactly one attempt per credential, in order, each finishing
// (session closed) before the next starts. Attempt failures are recorded on
// the records; only empty input is an error.
func (o *Orchestrator) Run(ctx context.Context, list []creds.Credential) (*Result, error) {
	return o.RunWithID(ctx, uuid.NewString(), list)
}

// RunWithID is Run with a caller-chosen batch ID.
func (o *Orchestrator) RunWithID(ctx context.Context, id string, list []creds.Credential) (*Result, error) {
	if len(list) == 0 {
		progress.Error(o.reporter, "", "%v", ErrNoValidInput)
		return nil, ErrNoValidInput
	}

	res := &Result{
		ID:      id,
		Started: time.Now(),
		Records: make([]result.Record, 0, len(list)),
	}

	for i, c := range list {
		progress.Info(o.reporter, c.Identifier, "Attempt %d/%d", i+1, len(list))
		res.Records = append(res.Records, o.attempter.Attempt(ctx, c, o.reporter))
	}

	res.Finished = time.Now()
	progress.Success(o.reporter, "", "Done! %d checked in %s (%s)",
		len(res.Records), res.Finished.Sub(res.Started).Round(time.Second), res.Summary())
	return res, nil
}
