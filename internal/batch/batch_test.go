package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/v0xg/registrycheck/internal/config"
	"github.com/v0xg/registrycheck/internal/creds"
	"github.com/v0xg/registrycheck/internal/export"
	"github.com/v0xg/registrycheck/internal/progress"
	"github.com/v0xg/registrycheck/internal/result"
	"github.com/v0xg/registrycheck/internal/runner"
	"github.com/v0xg/registrycheck/internal/session/sessiontest"
)

const (
	wrongPage   = `<html><body><p>Λανθασμένο όνομα χρήστη ή κωδικός πρόσβασης</p></body></html>`
	successPage = `<html><body><a href="/logout">Αποσύνδεση</a>
<table><tr><td>ΑΦΜ</td><td>123456789</td></tr><tr><td>Α.Μ.Κ.Α.</td><td>987654321</td></tr>
<tr><td>Επώνυμο / Επώνυμο(β) / Όνομα</td><td>ΒΑΣΙΛΕΙΟΥ ΒΑΣΙΛΗΣ</td></tr><tr><td>ΔΟΥ</td><td>ΧΑΝΙΩΝ</td></tr></table></body></html>`
)

func newRunner(d *sessiontest.Driver) *runner.Runner {
	opts := runner.Options{
		URL:              config.DefaultRegistryURL,
		UsernameSelector: "#username",
		PasswordSelector: "#password",
		SettleDelay:      time.Second,
	}
	return runner.New(d, opts, runner.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func TestRunText_EndToEnd(t *testing.T) {
	d := &sessiontest.Driver{Pages: map[string]string{"alice": wrongPage, "bob": successPage}}
	rep := &progress.Recorder{}

	res, err := New(newRunner(d), rep).RunText(context.Background(), "alice secret1\nbob secret2")
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, result.Record{Identifier: "alice", Status: result.WrongCredentials}, res.Records[0])
	assert.Equal(t, result.Record{
		Identifier:       "bob",
		Status:           result.Success,
		FullName:         "ΒΑΣΙΛΕΙΟΥ ΒΑΣΙΛΗΣ",
		TaxID:            "123456789",
		SocialSecurityID: "987654321",
		TaxOffice:        "ΧΑΝΙΩΝ",
	}, res.Records[1])
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Finished.Before(res.Started))
	assert.Equal(t, "Success: 1, Wrong Credentials: 1", res.Summary())

	// One session at a time, every session closed
	opens, closes, maxLive := d.Counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 2, closes)
	assert.Equal(t, 1, maxLive)

	successes := rep.Levels(progress.LevelSuccess)
	require.NotEmpty(t, successes)
	assert.True(t, strings.HasPrefix(successes[len(successes)-1].Message, "Done! 2 checked"))

	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, res.Records))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 records
	assert.Len(t, rows[0], 6)
	assert.Equal(t, "alice", rows[1][0])
	assert.Equal(t, "Wrong Credentials", rows[1][1])
	assert.Equal(t, []string{"bob", "Success", "ΒΑΣΙΛΕΙΟΥ ΒΑΣΙΛΗΣ", "123456789", "987654321", "ΧΑΝΙΩΝ"}, rows[2])
}

func TestRun_NoValidInput(t *testing.T) {
	d := &sessiontest.Driver{}
	rep := &progress.Recorder{}

	res, err := New(newRunner(d), rep).RunText(context.Background(), "only-one-token\n\n   \n")
	assert.ErrorIs(t, err, ErrNoValidInput)
	assert.Nil(t, res)

	opens, _, _ := d.Counts()
	assert.Zero(t, opens)
	assert.Len(t, rep.Levels(progress.LevelError), 1)
}

type scripted struct {
	seen []string
}

func (s *scripted) Attempt(ctx context.Context, c creds.Credential, rep progress.Reporter) result.Record {
	s.seen = append(s.seen, c.Identifier)
	r := result.New(c.Identifier)
	r.Status = result.SystemError
	return r
}

func TestRun_FailuresDoNotAbort(t *testing.T) {
	s := &scripted{}
	list := []creds.Credential{{Identifier: "a", Secret: "1"}, {Identifier: "b", Secret: "2"}, {Identifier: "c", Secret: "3"}}

	res, err := New(s, nil).Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, s.seen)
	require.Len(t, res.Records, 3)
	for _, r := range res.Records {
		assert.Equal(t, result.SystemError, r.Status)
	}
	assert.Equal(t, "Error: 3", res.Summary())
}
