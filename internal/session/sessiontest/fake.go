// Package sessiontest provides an in-memory session.Driver for tests.
package sessiontest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/v0xg/registrycheck/internal/session"
)

// Driver serves scripted pages keyed by the value typed into UserSelector.
type Driver struct {
	// Pages maps a username to the HTML shown after submitting it.
	Pages map[string]string
	// LoginPage is returned by Content before a key press.
	LoginPage string
	// UserSelector is the field whose value picks the page; default "#username".
	UserSelector string

	OpenErr     error
	NavigateErr error
	// FailOn makes the named operation fail for the given username.
	FailOn map[string]string

	mu      sync.Mutex
	opens   int
	closes  int
	live    int
	maxLive int
	Filled  []map[string]string
	Pressed []string
	Visited []string
}

// Open hands out a new fake session
func (d *Driver) Open(ctx context.Context) (session.Session, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	d.live++
	if d.live > d.maxLive {
		d.maxLive = d.live
	}
	fields := make(map[string]string)
	d.Filled = append(d.Filled, fields)
	return &Session{d: d, fields: fields}, nil
}

// Counts reports opened sessions, closed sessions, and the most that were
// ever open at once.
func (d *Driver) Counts() (opens, closes, maxLive int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens, d.closes, d.maxLive
}

func (d *Driver) userSelector() string {
	if d.UserSelector == "" {
		return "#username"
	}
	return d.UserSelector
}

// Session is a scripted session.Session
type Session struct {
	d       *Driver
	fields  map[string]string
	pressed bool
	closed  bool
}

func (s *Session) fail(op string) error {
	user := s.fields[s.d.userSelector()]
	if s.d.FailOn != nil && s.d.FailOn[user] == op {
		return fmt.Errorf("%s failed for %s", op, user)
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.d.mu.Lock()
	s.d.Visited = append(s.d.Visited, url)
	s.d.mu.Unlock()
	if s.d.NavigateErr != nil {
		return s.d.NavigateErr
	}
	return ctx.Err()
}

func (s *Session) WaitElement(ctx context.Context, selector string) error {
	return ctx.Err()
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	s.d.mu.Lock()
	s.fields[selector] = value
	s.d.mu.Unlock()
	return s.fail("fill")
}

func (s *Session) Press(ctx context.Context, selector string, key session.Key) error {
	if err := s.fail("press"); err != nil {
		return err
	}
	s.d.mu.Lock()
	s.d.Pressed = append(s.d.Pressed, selector+":"+string(key))
	s.d.mu.Unlock()
	s.pressed = true
	return nil
}

func (s *Session) Content(ctx context.Context) (string, error) {
	if err := s.fail("content"); err != nil {
		return "", err
	}
	if !s.pressed {
		return s.d.LoginPage, nil
	}
	user := s.fields[s.d.userSelector()]
	page, ok := s.d.Pages[user]
	if !ok {
		return "", errors.New("no scripted page for " + user)
	}
	return page, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.fail("screenshot"); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 64, 36))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Session) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.d.closes++
		s.d.live--
	}
	return nil
}
