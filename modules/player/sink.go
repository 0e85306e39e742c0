package player

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// playerExitTimeout is how long Close waits for the player to exit on its
// own before killing it.
const playerExitTimeout = 5 * time.Second

// CommandSink starts command for each session and feeds it on stdin.
func CommandSink(command []string) SinkFunc {
	return func() (io.WriteCloser, error) {
		if len(command) == 0 || command[0] == "" {
			return nil, errors.New("no player command configured")
		}

		cmd := exec.Command(command[0], command[1:]...)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open player stdin: %w", err)
		}

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start player %q: %w", command[0], err)
		}

		return &processSink{cmd: cmd, stdin: stdin, exitTimeout: playerExitTimeout}, nil
	}
}

type processSink struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	exitTimeout time.Duration
}

func (s *processSink) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close ends the input and waits for the player to exit, killing it after
// exitTimeout. A Write blocked on a full pipe returns once stdin is closed.
// Players commonly exit non-zero once stdin closes, so only failures to wait
// are returned.
func (s *processSink) Close() error {
	_ = s.stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()

	var err error
	select {
	case err = <-exited:
	case <-time.After(s.exitTimeout):
		_ = s.cmd.Process.Kill()
		err = <-exited
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
