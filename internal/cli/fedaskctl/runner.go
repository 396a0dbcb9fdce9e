package fedaskctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("fedaskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "fedask API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	api := apiClient{client: client, baseURL: strings.TrimRight(*baseURL, "/")}

	command := strings.TrimSpace(fs.Arg(0))
	switch command {
	case "health":
		return api.printJSON(ctx, stdout, stderr, http.MethodGet, "/v1/health")
	case "ready":
		return api.printJSON(ctx, stdout, stderr, http.MethodGet, "/v1/ready")
	case "schema":
		var response struct {
			Schema string `json:"schema"`
		}
		if code := api.call(ctx, stderr, http.MethodGet, "/v1/schema", nil, &response); code != 0 {
			return code
		}
		_, _ = fmt.Fprintln(stdout, response.Schema)
		return 0
	case "pipeline-run":
		return api.printJSON(ctx, stdout, stderr, http.MethodPost, "/v1/pipeline/run")
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		answer, code := api.ask(ctx, stderr, question)
		if code != 0 {
			return code
		}
		_, _ = fmt.Fprintln(stdout, answer)
		return 0
	case "chat":
		return api.chat(ctx, defaults.Stdin, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

type apiClient struct {
	client  *http.Client
	baseURL string
}

func (c apiClient) ask(ctx context.Context, stderr io.Writer, question string) (string, int) {
	var response struct {
		Answer *string `json:"answer"`
	}
	if code := c.call(ctx, stderr, http.MethodPost, "/ask", map[string]string{"question": question}, &response); code != 0 {
		return "", code
	}
	if response.Answer == nil {
		return "No answer received.", 0
	}
	return *response.Answer, 0
}

// chat reads one question per line until EOF or "exit" and prints each turn.
// A failed request is reported and the session continues.
func (c apiClient) chat(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) int {
	if stdin == nil {
		_, _ = fmt.Fprintln(stderr, "chat requires an input stream")
		return 2
	}
	_, _ = fmt.Fprintln(stdout, "Ask anything about the database. Type exit to quit.")

	scanner := bufio.NewScanner(stdin)
	for {
		_, _ = fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			_, _ = fmt.Fprintln(stderr, "Please enter a question.")
			continue
		case "exit", "quit":
			return 0
		}

		answer, code := c.ask(ctx, stderr, question)
		if code != 0 {
			if ctx.Err() != nil {
				return 1
			}
			continue
		}
		_, _ = fmt.Fprintf(stdout, "You: %s\n", question)
		_, _ = fmt.Fprintf(stdout, "Agent: %s\n", answer)
	}
	_, _ = fmt.Fprintln(stdout)
	if err := scanner.Err(); err != nil {
		_, _ = fmt.Fprintf(stderr, "read input: %v\n", err)
		return 1
	}
	return 0
}

func (c apiClient) printJSON(ctx context.Context, stdout, stderr io.Writer, method, path string) int {
	var raw json.RawMessage
	if code := c.call(ctx, stderr, method, path, nil, &raw); code != 0 {
		return code
	}
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(stdout, string(raw))
	}
	return 0
}

// call returns 0 on success and the process exit code otherwise, after
// reporting the failure on stderr.
func (c apiClient) call(ctx context.Context, stderr io.Writer, method, path string, payload, out any) int {
	code, body, err := doRequest(ctx, c.client, method, c.baseURL+path, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return 0
	}
	if err := json.Unmarshal(body, out); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: decode response: %v\n", err)
		return 1
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: fedaskctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health            GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready             GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  schema            GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  ask <question>    POST /ask and print the answer")
	_, _ = fmt.Fprintln(w, "  pipeline-run      POST /v1/pipeline/run")
	_, _ = fmt.Fprintln(w, "  chat              interactive question loop on stdin")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
