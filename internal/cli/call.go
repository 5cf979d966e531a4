package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/seantiz/snakebridge/internal/model"
)

const (
	defaultCallAddr    = "http://localhost:9001"
	defaultCallTimeout = 5 * time.Second
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	Addr    string
	File    string
	Timeout time.Duration
}

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call <start|move|end|ping>",
		Short: "Send one request to a running server",
		Long: `Send one request to a running server and print its reply.

The JSON payload is read from --file, or from stdin when no file is given.
Ping needs no payload.

Example:
  snakebridge call move --file board.json
  echo '{"game":{"id":"g1"},"turn":0}' | snakebridge call start`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{"start", "move", "end", "ping"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", defaultCallAddr, "server base URL")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the JSON payload from this file")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", defaultCallTimeout, "request timeout")

	return cmd
}

func runCall(cmd *cobra.Command, opts *CallOptions, kindArg string) error {
	kind := model.Kind(kindArg)
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q: must be one of %v", kindArg, model.Kinds)
	}

	payload, err := readCallPayload(cmd, opts, kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	url := strings.TrimRight(opts.Addr, "/") + "/" + kind.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("%s failed with status %d: %s", kind, resp.StatusCode, msg)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
	return nil
}

func readCallPayload(cmd *cobra.Command, opts *CallOptions, kind model.Kind) ([]byte, error) {
	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return data, nil
	case kind == model.KindPing:
		return nil, nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
}
