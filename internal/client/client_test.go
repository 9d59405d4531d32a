package client_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omochice/toy-socket-relay/internal/client"
)

type fakeClient struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
	lines   chan string
}

func newFakeClient() *fakeClient {
	return &fakeClient{lines: make(chan string, 10)}
}

func (f *fakeClient) Connect(context.Context) error { return nil }
func (f *fakeClient) Disconnect()                   {}
func (f *fakeClient) IsConnected() bool             { return true }
func (f *fakeClient) Lines() <-chan string          { return f.lines }

func (f *fakeClient) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeClient) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestRun_NameFromFlag(t *testing.T) {
	fc := newFakeClient()
	in := strings.NewReader("hello\n\n  world  \n")

	if err := client.Run(context.Background(), fc, "Alice", in, io.Discard, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"Alice", "hello", "world"}
	got := fc.Sent()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sent = %q, want %q", got, want)
	}
}

func TestRun_NameFromFirstLine(t *testing.T) {
	fc := newFakeClient()
	in := strings.NewReader("Bob\nhi\n")

	if err := client.Run(context.Background(), fc, "", in, io.Discard, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"Bob", "hi"}
	got := fc.Sent()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("sent = %q, want %q", got, want)
	}
}

func TestRun_ExitCommand(t *testing.T) {
	fc := newFakeClient()
	in := strings.NewReader("one\n/exit\ntwo\n")

	if err := client.Run(context.Background(), fc, "Carol", in, io.Discard, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := fc.Sent()
	if len(got) != 2 || got[1] != "one" {
		t.Errorf("sent = %q, want name and \"one\" only", got)
	}
}

func TestRun_PrintsReceivedLines(t *testing.T) {
	fc := newFakeClient()
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	fc.lines <- "[Server] Welcome Dan on TCP"
	close(fc.lines)

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background(), fc, "Dan", pr, &out, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after the connection closed")
	}

	if out.String() != "[Server] Welcome Dan on TCP\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_SendError(t *testing.T) {
	fc := newFakeClient()
	fc.sendErr = client.ErrNotConnected

	err := client.Run(context.Background(), fc, "Eve", strings.NewReader(""), io.Discard, nil)
	if !errors.Is(err, client.ErrNotConnected) {
		t.Errorf("Run() error = %v, want ErrNotConnected", err)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	fc := newFakeClient()
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, fc, "Frank", pr, io.Discard, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
