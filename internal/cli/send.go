package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cybermarket/internal/protocol"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	Addr        string
	DialTimeout time.Duration
	Drain       time.Duration
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send request lines from stdin to a market server",
		Long: `Connect to a market server, forward each stdin line as a request and
print every reply. At end of input the command waits for the outstanding
replies, then sends DISCONNECT.

Example:
  printf 'CLIENT_CREATE 1 alice a@x.com pw\nCLIENT_LOGIN 2 alice pw\n' | cybermarket send
  cybermarket send --addr market.internal:22333 < session.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Send(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", "127.0.0.1:22333", "server address")
	cmd.Flags().DurationVar(&opts.DialTimeout, "dial-timeout", 5*time.Second, "connect timeout")
	cmd.Flags().DurationVar(&opts.Drain, "drain", 10*time.Second, "how long to wait for outstanding replies at end of input")

	return cmd
}

// Send runs one client session: every non-blank line of in is a request,
// every reply is written to out.
func Send(ctx context.Context, opts *SendOptions, in io.Reader, out io.Writer) error {
	dialer := net.Dialer{Timeout: opts.DialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", opts.Addr, err)
	}
	defer nc.Close()

	done := make(chan struct{})
	defer close(done)

	replies := make(chan string)
	go func() {
		defer close(replies)
		scanner := bufio.NewScanner(nc)
		scanner.Buffer(make([]byte, 0, 4096), 1<<20)
		for scanner.Scan() {
			select {
			case replies <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	input := make(chan string)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case input <- scanner.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()

	var (
		sent, received int
		drain          <-chan time.Time
	)
	w := bufio.NewWriter(nc)

	for {
		if input == nil && received >= sent {
			break
		}

		select {
		case line, ok := <-input:
			if !ok {
				input = nil
				drain = time.After(opts.Drain)
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if isDisconnect(line) {
				// the server drops pending replies on DISCONNECT
				input = nil
				drain = time.After(opts.Drain)
				continue
			}
			if _, err := w.WriteString(line + "\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			sent++

		case reply, ok := <-replies:
			if !ok {
				return errors.New("connection closed by server")
			}
			fmt.Fprintln(out, reply)
			received++

		case <-drain:
			fmt.Fprintf(os.Stderr, "gave up waiting for %d replies\n", sent-received)
			input = nil
			sent = received

		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err = fmt.Fprintf(nc, "%s -\n", protocol.VerbDisconnect)
	return err
}

func isDisconnect(line string) bool {
	verb, _, _ := strings.Cut(strings.TrimSpace(line), " ")
	return verb == string(protocol.VerbDisconnect)
}
