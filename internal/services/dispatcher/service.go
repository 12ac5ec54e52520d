// Package dispatcher maps verbs to operations on a profile configuration.
package dispatcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fgeck/arkki/internal/config"
	"github.com/fgeck/arkki/internal/models"
	"github.com/fgeck/arkki/internal/services/archive"
	"github.com/fgeck/arkki/internal/services/pipeline"
	"github.com/rs/zerolog"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitFatal  = 3
)

// Prompt is printed before each line in interactive mode.
const Prompt = "arkki> "

var (
	// ErrUnknownCommand is returned for verbs missing from the verb table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQuit ends interactive mode.
	ErrQuit = errors.New("quit")
	// ErrUsage is returned for wrong arguments.
	ErrUsage = errors.New("usage")
)

// OperationError is a recoverable failure of a single command.
type OperationError struct {
	Verb string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Verb, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by Dispatch or Interactive to a process
// exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return ExitFailed
	}
	return ExitFatal
}

// Service defines the interface for command dispatch.
type Service interface {
	Dispatch(ctx context.Context, req models.Request, args []string) error
	Interactive(ctx context.Context, req models.Request, in io.Reader) error
}

// Impl implements the Service interface.
type Impl struct {
	locator    config.Locator
	builder    pipeline.Builder
	archiveSvc archive.Service
	env        models.Environment
	out        io.Writer
	logger     zerolog.Logger
	now        func() time.Time
	getwd      func() (string, error)
	interrupt  func(ctx context.Context) (context.Context, context.CancelFunc)
}

// interruptContext returns a context cancelled by SIGINT until stop is
// called. Outside a command SIGINT keeps its default action.
func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// New creates a new dispatcher writing command output to out.
func New(logger zerolog.Logger, env models.Environment, out io.Writer) *Impl {
	return &Impl{
		locator:    config.NewLocator(env.ConfigDir),
		builder:    pipeline.New(),
		archiveSvc: archive.New(logger),
		env:        env,
		out:        out,
		logger:     logger,
		now:        time.Now,
		getwd:      os.Getwd,
		interrupt:  interruptContext,
	}
}

// NewWithServices creates a new dispatcher with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	env models.Environment,
	out io.Writer,
	builder pipeline.Builder,
	archiveSvc archive.Service,
	now func() time.Time,
	getwd func() (string, error),
) *Impl {
	return &Impl{
		locator:    config.NewLocator(env.ConfigDir),
		builder:    builder,
		archiveSvc: archiveSvc,
		env:        env,
		out:        out,
		logger:     logger,
		now:        now,
		getwd:      getwd,
		interrupt:  interruptContext,
	}
}

// Dispatch runs one command. args[0] is the verb; no args means backup.
// Every failure is returned as an *OperationError.
func (s *Impl) Dispatch(ctx context.Context, req models.Request, args []string) error {
	if len(args) == 0 {
		args = []string{"backup"}
	}

	cmd, err := Resolve(args[0])
	if err != nil {
		return &OperationError{Verb: args[0], Err: err}
	}

	rest := args[1:]
	if cmd.MaxArgs >= 0 && len(rest) > cmd.MaxArgs {
		return &OperationError{Verb: cmd.Name, Err: fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)}
	}

	s.logger.Debug().Str("command", cmd.Name).Strs("args", rest).Msg("dispatching")

	// SIGINT cancels only the running command; an interactive session
	// continues with the next line.
	cmdCtx, stop := s.interrupt(ctx)
	err = s.run(cmdCtx, req, cmd, rest)
	if cmdCtx.Err() != nil && ctx.Err() == nil {
		s.logger.Warn().Str("command", cmd.Name).Msg("interrupted")
	}
	stop()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuit):
		if req.Interactive {
			return ErrQuit
		}
		return nil
	default:
		return &OperationError{Verb: cmd.Name, Err: err}
	}
}

func (s *Impl) run(ctx context.Context, req models.Request, cmd Command, args []string) error {
	switch cmd.Op {
	case OpBackup:
		return s.backup(ctx, req, args)
	case OpInit:
		return s.initialize(req, args)
	case OpSetOption:
		return s.setOption(req, cmd.Option, args)
	case OpAddPattern:
		return s.exclude(req, args)
	case OpList:
		return s.list(ctx, req)
	case OpPrint:
		return s.print(req, args)
	case OpHelp:
		s.help()
		return nil
	case OpVersion:
		_, err := fmt.Fprintf(s.out, "arkki %s\n", s.env.Version)
		return err
	case OpQuit:
		return ErrQuit
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
}

// Interactive reads commands from in, one per line, until quit or end of
// input. Failed commands are logged and the loop continues.
func (s *Impl) Interactive(ctx context.Context, req models.Request, in io.Reader) error {
	req.Interactive = true
	scanner := bufio.NewScanner(in)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, _ = fmt.Fprint(s.out, Prompt)
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		err := s.Dispatch(ctx, req, fields)
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("command failed")
		}
	}

	_, _ = fmt.Fprintln(s.out)
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

func (s *Impl) help() {
	for _, c := range Commands {
		_, _ = fmt.Fprintf(s.out, "  %-28s %s\n", c.Usage, c.Short)
	}
}
