package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"showdown-agent/config"
	"showdown-agent/game"
)

const defaultDelegateTimeout = 60 * time.Second

type delegateCommand struct {
	Action  string        `json:"action"`
	Backend string        `json:"backend,omitempty"`
	Request *game.Request `json:"request,omitempty"`
}

type delegateReply struct {
	Status  string `json:"status"`
	Choice  string `json:"choice"`
	Message string `json:"message"`
}

// Delegate forwards requests to an external decision process speaking one
// JSON object per line on stdin/stdout.
type Delegate struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	replies chan []byte
	done    chan struct{}
	timeout time.Duration
	log     *slog.Logger

	mu        sync.Mutex
	broken    error
	closeOnce sync.Once
}

// StartDelegate launches the process and performs the init handshake.
func StartDelegate(ctx context.Context, cfg config.DelegateConfig, logger *slog.Logger) (*Delegate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("delegate stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("delegate stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("delegate stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting delegate %s: %w", cfg.Command, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDelegateTimeout
	}
	d := &Delegate{
		cmd:     cmd,
		stdin:   stdin,
		replies: make(chan []byte, 1),
		done:    make(chan struct{}),
		timeout: timeout,
		log:     logger.With("delegate", cfg.Command),
	}
	go d.readReplies(stdout)
	go d.drainStderr(stderr)

	if _, err := d.call(ctx, delegateCommand{Action: "init", Backend: cfg.Backend}); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("delegate init: %w", err)
	}
	d.log.Info("delegate ready", "backend", cfg.Backend)
	return d, nil
}

func (d *Delegate) readReplies(r io.Reader) {
	defer close(d.replies)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		select {
		case d.replies <- append([]byte(nil), line...):
		case <-d.done:
			return
		}
	}
}

func (d *Delegate) drainStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.log.Debug("delegate stderr", "line", sc.Text())
	}
}

// call sends one command and waits for its reply. After a timeout the
// process may still answer late, so the delegate is marked broken rather
// than risk pairing that answer with the next request.
func (d *Delegate) call(ctx context.Context, c delegateCommand) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.broken != nil {
		return "", d.broken
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", c.Action, err)
	}
	if _, err := d.stdin.Write(append(payload, '\n')); err != nil {
		d.broken = fmt.Errorf("%w: writing %s: %v", ErrDelegateFailed, c.Action, err)
		return "", d.broken
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case line, ok := <-d.replies:
		if !ok {
			d.broken = fmt.Errorf("%w: process exited", ErrDelegateFailed)
			return "", d.broken
		}
		var reply delegateReply
		if err := json.Unmarshal(line, &reply); err != nil {
			return "", fmt.Errorf("%w: decoding reply: %v", ErrDelegateFailed, err)
		}
		if reply.Status != "ok" {
			return "", fmt.Errorf("%w: %s", ErrDelegateFailed, reply.Message)
		}
		return reply.Choice, nil
	case <-timer.C:
		d.broken = fmt.Errorf("%s after %s: %w", c.Action, d.timeout, ErrDelegateTimeout)
		return "", d.broken
	case <-ctx.Done():
		d.broken = fmt.Errorf("%s: %w", c.Action, ctx.Err())
		return "", d.broken
	}
}

func (d *Delegate) choose(ctx context.Context, action string, req *game.Request) (string, error) {
	choice, err := d.call(ctx, delegateCommand{Action: action, Request: req})
	if err != nil {
		return "", err
	}
	if choice == "" {
		return "", fmt.Errorf("%w: empty choice for %s", ErrDelegateFailed, action)
	}
	return choice, nil
}

func (d *Delegate) TeamPreview(ctx context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	return d.choose(ctx, "choose_team_preview", req)
}

func (d *Delegate) ForceSwitch(ctx context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	return d.choose(ctx, "choose_switch", req)
}

func (d *Delegate) Move(ctx context.Context, req *game.Request, _ *game.BattleState) (string, error) {
	return d.choose(ctx, "choose_move", req)
}

// Close asks the process to quit and kills it if it lingers.
func (d *Delegate) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		if d.broken == nil {
			payload, _ := json.Marshal(delegateCommand{Action: "quit"})
			_, _ = d.stdin.Write(append(payload, '\n'))
		}
		d.broken = fmt.Errorf("%w: closed", ErrDelegateFailed)
		d.mu.Unlock()
		close(d.done)

		_ = d.stdin.Close()
		exited := make(chan error, 1)
		go func() { exited <- d.cmd.Wait() }()
		select {
		case <-exited:
		case <-time.After(2 * time.Second):
			_ = d.cmd.Process.Kill()
			<-exited
		}
	})
	return nil
}
