package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"

	"github.com/garrettladley/whoopsync/internal/xhttp"
	"github.com/garrettladley/whoopsync/internal/xslog"
)

const (
	defaultCallbackPath = "/callback"
	shutdownTime        = 5 * time.Second
)

type tokenResult struct {
	token *oauth2.Token
	err   error
}

// DirectFlow runs the authorization-code grant against WHOOP with a loopback
// listener on the configured redirect URL, then stores the issued token.
type DirectFlow struct {
	config *oauth2.Config
	store  TokenStore
	state  string
	out    io.Writer
	logger *slog.Logger

	// openURL is replaced in tests to follow the authorization URL directly.
	openURL func(string) error
}

func NewDirectFlow(config *oauth2.Config, store TokenStore, out io.Writer, logger *slog.Logger) *DirectFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectFlow{
		config:  config,
		store:   store,
		state:   newState(),
		out:     out,
		logger:  logger,
		openURL: openBrowser,
	}
}

func (f *DirectFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	addr, path, err := callbackAddress(f.config.RedirectURL)
	if err != nil {
		return nil, err
	}

	resultCh := make(chan tokenResult, 1)

	server, listener, err := startCallbackServer(addr, path, f.callbackHandler, resultCh)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer shutdown(server, f.logger)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			send(resultCh, tokenResult{err: fmt.Errorf("server error: %w", err)})
		}
	}()

	authURL := f.config.AuthCodeURL(f.state, oauth2.AccessTypeOffline)

	_, _ = fmt.Fprintf(f.out, "Opening browser for authorization...\n")
	_, _ = fmt.Fprintf(f.out, "If the browser doesn't open, visit:\n%s\n\n", authURL)

	if err := f.openURL(authURL); err != nil {
		f.logger.WarnContext(ctx, "failed to open browser", xslog.Error(err))
	}

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, result.err
		}
		if err := f.store.Save(ctx, result.token); err != nil {
			return nil, fmt.Errorf("failed to save token: %w", err)
		}
		return result.token, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *DirectFlow) callbackHandler(w http.ResponseWriter, r *http.Request) (*oauth2.Token, error) {
	query := r.URL.Query()

	if !validState(f.state, query.Get(ParamState)) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return nil, errors.New("invalid state parameter")
	}

	if errParam := query.Get(ParamError); errParam != "" {
		errDesc := query.Get(ParamErrorDescription)
		http.Error(w, fmt.Sprintf("OAuth error: %s", errDesc), http.StatusBadRequest)
		return nil, fmt.Errorf("oauth error: %s - %s", errParam, errDesc)
	}

	code := query.Get(ParamCode)
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return nil, errors.New("missing authorization code")
	}

	token, err := f.config.Exchange(withHTTPClient(r.Context()), code)
	if err != nil {
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return token, nil
}

// callbackAddress derives the loopback listen address and path from the
// redirect URL registered with WHOOP.
func callbackAddress(redirectURL string) (string, string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid redirect url: %w", err)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return "", "", fmt.Errorf("redirect url %q is not a loopback address", redirectURL)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	path := u.Path
	if path == "" {
		path = defaultCallbackPath
	}
	return net.JoinHostPort(host, port), path, nil
}

func startCallbackServer(
	addr string,
	path string,
	handler func(http.ResponseWriter, *http.Request) (*oauth2.Token, error),
	resultCh chan<- tokenResult,
) (*http.Server, net.Listener, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		token, err := handler(w, r)
		if err != nil {
			send(resultCh, tokenResult{err: err})
			return
		}
		writeSuccessHTML(w)
		send(resultCh, tokenResult{token: token})
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start listener: %w", err)
	}

	return &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}, listener, nil
}

// send never blocks; only the first result is consumed.
func send(ch chan<- tokenResult, result tokenResult) {
	select {
	case ch <- result:
	default:
	}
}

func shutdown(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTime)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("failed to shutdown callback server", xslog.Error(err))
	}
}

func writeSuccessHTML(w http.ResponseWriter) {
	xhttp.SetHeaderContentTypeTextHTML(w)
	_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
<h1>Authorization Successful</h1>
<p>whoopsync is authorized. You can close this window and return to the terminal.</p>
</body>
</html>`)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
