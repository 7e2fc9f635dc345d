package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bft-labs/streamkeeper/internal/adapters/google"
)

const loginTimeout = 5 * time.Minute

func (c *cli) loginCommand() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize streamkeeper to manage broadcasts on your channel",
		Long: strings.TrimSpace(`
Prints a Google consent URL. After you approve access, Google redirects to the
configured redirect URL, where streamkeeper listens for the authorization code
and stores the resulting token in the token file.

With --manual, paste the code (or the whole redirect URL) instead.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()

			id, err := c.identity(ctx)
			if err != nil {
				return err
			}

			state := uuid.NewString()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this URL in your browser and grant access:\n\n  %s\n\n", id.AuthCodeURL(state))

			var code string
			if manual {
				code, err = readCode(cmd.InOrStdin(), out, state)
			} else {
				code, err = c.awaitCallback(ctx, state)
			}
			if err != nil {
				return err
			}

			if err := id.Exchange(ctx, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Authorized. Token stored in %s\n", c.cfg.TokenFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "paste the authorization code instead of listening for the redirect")
	return cmd
}

// awaitCallback serves the redirect URL until Google calls it with a code.
func (c *cli) awaitCallback(ctx context.Context, state string) (string, error) {
	redirect := c.cfg.Google.RedirectURL
	if redirect == "" {
		redirect = google.DefaultRedirectURL
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("listen on %s (use --manual if the redirect host is remote): %w", u.Host, err)
	}

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	r := chi.NewRouter()
	r.Get(callbackPath(u), func(w http.ResponseWriter, r *http.Request) {
		code, err := codeFromQuery(r.URL.Query(), state)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			select {
			case errs <- err:
			default:
			}
			return
		}
		fmt.Fprintln(w, "streamkeeper is authorized. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.log.Info().Str("addr", ln.Addr().String()).Msg("waiting for authorization redirect")

	select {
	case code := <-codes:
		return code, nil
	case err := <-errs:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

// readCode reads a code, or a redirect URL carrying one, from in.
func readCode(in io.Reader, out io.Writer, state string) (string, error) {
	fmt.Fprint(out, "Paste the authorization code or redirect URL: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("no authorization code entered")
	}

	if u, err := url.Parse(line); err == nil && u.RawQuery != "" {
		return codeFromQuery(u.Query(), state)
	}
	return line, nil
}

func codeFromQuery(q url.Values, state string) (string, error) {
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != state {
		return "", errors.New("authorization state mismatch")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("authorization code missing from redirect")
	}
	return code, nil
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
