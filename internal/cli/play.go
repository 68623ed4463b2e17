package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/protocol"
)

func newPlayCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "play [command...]",
		Short: "Play over the websocket connection",
		Long: `Connect to the game server and play rounds.

With arguments, each one is sent in order and the reply is awaited before
the next is sent, then the connection closes:

  minesctl play SG:10:3 RC:2:2 RDC CO

Without arguments, commands are read from stdin one per line and every event
is printed as it arrives. Press Ctrl+C to disconnect.

Commands:
  SG:<bet>:<mines>   place a bet
  RC:<row>:<col>     reveal a cell
  RDC                reveal a random cell
  CO                 cash out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return fmt.Errorf("no player token: use --token or 'minesctl admin token'")
			}

			commands := make([]protocol.Command, len(args))
			for i, raw := range args {
				c, err := protocol.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid command %q: %w", raw, err)
				}
				commands[i] = c
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, err := dialSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			out := NewOutput(cfg.Output)
			if len(commands) > 0 {
				return s.script(commands, timeout, out)
			}
			return s.interactive(ctx, out)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for each reply")

	return cmd
}

// session is a client-side game connection
type session struct {
	conn   *websocket.Conn
	frames chan protocol.Frame
	errc   chan error
}

func dialSession(ctx context.Context) (*session, error) {
	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("server rejected the player token")
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &session{
		conn:   conn,
		frames: make(chan protocol.Frame, 64),
		errc:   make(chan error, 1),
	}
	go s.readLoop()
	return s, nil
}

func (s *session) readLoop() {
	defer close(s.frames)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.errc <- err
			}
			return
		}
		frame, err := protocol.Decode(data)
		if err != nil {
			s.errc <- err
			return
		}
		s.frames <- frame
	}
}

func (s *session) send(c protocol.Command) error {
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "> %s\n", c)
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(c.String()))
}

func (s *session) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// script sends each command and prints events until its reply arrives
func (s *session) script(commands []protocol.Command, timeout time.Duration, out *Output) error {
	// The server greets with the balance and the payout table
	if err := s.await(timeout, out, func(f protocol.Frame) bool { return f.Event == model.EventMines }); err != nil {
		return err
	}

	for _, c := range commands {
		if err := s.send(c); err != nil {
			return fmt.Errorf("send %s: %w", c, err)
		}
		if err := s.await(timeout, out, endsReply); err != nil {
			return fmt.Errorf("waiting for reply to %s: %w", c, err)
		}
	}
	return nil
}

func (s *session) await(timeout time.Duration, out *Output, done func(protocol.Frame) bool) error {
	deadline := time.After(timeout)
	for {
		select {
		case f, ok := <-s.frames:
			if !ok {
				return s.readErr()
			}
			out.Print(f)
			if done(f) {
				return nil
			}
		case <-deadline:
			return errors.New("timed out")
		}
	}
}

func (s *session) interactive(ctx context.Context, out *Output) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-s.frames:
			if !ok {
				return s.readErr()
			}
			out.Print(f)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			c, err := protocol.Parse(line)
			if err != nil {
				out.PrintError(fmt.Errorf("invalid command %q: %w", line, err))
				continue
			}
			if err := s.send(c); err != nil {
				return fmt.Errorf("send %s: %w", c, err)
			}
		}
	}
}

func (s *session) readErr() error {
	select {
	case err := <-s.errc:
		return fmt.Errorf("connection lost: %w", err)
	default:
		return errors.New("connection closed by server")
	}
}

// endsReply reports whether f is the last event the server sends in reply
// to a command
func endsReply(f protocol.Frame) bool {
	switch f.Event {
	case model.EventGameStarted, model.EventRevealedCell, model.EventMatchEnded,
		model.EventCashOutComplete, model.EventBetError:
		return true
	}
	return false
}
