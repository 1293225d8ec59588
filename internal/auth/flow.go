package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
)

// Flow performs the interactive part of an OAuth authorization. It is the
// one step that needs a human (browser consent), so adapters take it as a
// collaborator and tests inject an implementation returning a canned token.
type Flow interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// ConsoleFlow runs the authorization-code flow on a terminal: it prints the
// consent URL, reads the resulting code from In, and exchanges it for a
// token.
type ConsoleFlow struct {
	In  io.Reader
	Out io.Writer
}

// Authorize implements Flow.
func (f *ConsoleFlow) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	url := conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(f.Out, "Open the following URL in your browser, approve access, and paste the code here:\n\n%s\n\nCode: ", url)

	reader := bufio.NewReader(f.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, fmt.Errorf("empty authorization code")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}
