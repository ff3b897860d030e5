// Package opener hands files and URLs to the operating system's default handler.
package opener

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/starford/aegis/internal/apperr"
)

// DefaultMailURL is opened by OpenMail when no URL is configured.
const DefaultMailURL = "https://outlook.office.com/mail/"

// Runner starts a command without waiting for it.
type Runner func(ctx context.Context, name string, args ...string) error

// Opener launches the platform opener command.
type Opener struct {
	goos    string
	mailURL string
	run     Runner
	logger  *slog.Logger
}

// Option configures an Opener.
type Option func(*Opener)

// WithRunner replaces the process launcher.
func WithRunner(r Runner) Option {
	return func(o *Opener) { o.run = r }
}

// WithGOOS overrides the detected platform.
func WithGOOS(goos string) Option {
	return func(o *Opener) { o.goos = goos }
}

// WithMailURL sets the URL OpenMail uses.
func WithMailURL(u string) Option {
	return func(o *Opener) {
		if u != "" {
			o.mailURL = u
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Opener) { o.logger = l }
}

// New creates an Opener for the running platform.
func New(opts ...Option) *Opener {
	o := &Opener{
		goos:    runtime.GOOS,
		mailURL: DefaultMailURL,
		run:     startDetached,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open launches the default handler for target (a path or URL). It does not wait
// for the handler to exit.
func (o *Opener) Open(ctx context.Context, target string) error {
	if target == "" {
		return apperr.New(apperr.KindValidation, "open", target, "nothing to open")
	}
	name, args := command(o.goos, target)
	if err := o.run(ctx, name, args...); err != nil {
		return &apperr.Error{Kind: apperr.KindInternal, Op: "open", Path: target,
			Msg: fmt.Sprintf("failed to open %s: %v", target, err), Err: err}
	}
	o.logger.Debug("opener: launched", slog.String("target", target), slog.String("cmd", name))
	return nil
}

// OpenMail opens the web mail client.
func (o *Opener) OpenMail(ctx context.Context) error {
	return o.Open(ctx, o.mailURL)
}

// MailURL returns the URL OpenMail opens.
func (o *Opener) MailURL() string { return o.mailURL }

func command(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		// No shell in between, so & ^ | in file names stay literal.
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

func startDetached(_ context.Context, name string, args ...string) error {
	// Detached from ctx; the handler outlives the request.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
