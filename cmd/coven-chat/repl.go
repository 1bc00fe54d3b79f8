// ABOUTME: Line-oriented chat loop with slash commands
// ABOUTME: Streams assistant replies to the terminal as they grow and reports session rotation

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/render"
)

var (
	promptColor    = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan, color.Bold)
	userColor      = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
	dimColor       = color.New(color.FgHiBlack)
)

// repl drives one interactive session. All terminal output happens on the
// goroutine running run.
type repl struct {
	mgr      *conversation.Manager
	in       io.Reader
	out      io.Writer
	renderer *render.Renderer

	// timeoutNotice receives a value each time the inactivity timer
	// archives the conversation
	timeoutNotice <-chan struct{}

	// streaming state for the assistant message being printed
	streamID string
	shown    string
}

func newREPL(mgr *conversation.Manager, in io.Reader, out io.Writer) *repl {
	return &repl{
		mgr:      mgr,
		in:       in,
		out:      out,
		renderer: render.New(),
	}
}

func (r *repl) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := r.mgr.Subscribe(ctx)
	lines := readLines(ctx, r.in)

	fmt.Fprintln(r.out, "Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	if n := len(r.mgr.Messages()); n > 0 {
		dimColor.Fprintf(r.out, "Restored %d messages from your last conversation. /history to view.\n", n)
	}
	fmt.Fprintln(r.out)

	var sendDone chan error
	inputDone := false
	prompt := true

	for {
		if prompt && sendDone == nil {
			promptColor.Fprint(r.out, "> ")
			prompt = false
		}

		// Input waits while a reply is streaming
		input := lines
		if sendDone != nil {
			input = nil
		}

		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-events:
			if !ok {
				return nil
			}
			r.handleEvent(e)

		case <-r.timeoutNotice:
			fmt.Fprintln(r.out)
			dimColor.Fprintln(r.out, "Conversation archived after inactivity. Started a new one.")
			prompt = true

		case err := <-sendDone:
			sendDone = nil
			r.drain(events)
			r.finishReply(err)
			prompt = true
			if inputDone {
				return nil
			}

		case line, ok := <-input:
			if !ok {
				inputDone = true
				lines = nil
				if sendDone == nil {
					fmt.Fprintln(r.out)
					return nil
				}
				continue
			}

			quit, send := r.handleLine(ctx, line)
			if quit {
				return nil
			}
			if send != nil {
				sendDone = make(chan error, 1)
				go func(done chan<- error) {
					done <- send()
				}(sendDone)
			} else {
				prompt = true
			}
		}
	}
}

// readLines feeds stdin lines to a channel that closes at EOF
func readLines(ctx context.Context, in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// handleLine runs a command or returns a send to start. quit ends the loop.
// Messages are sent exactly as typed.
func (r *repl) handleLine(ctx context.Context, line string) (quit bool, send func() error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false, nil
	}

	if !strings.HasPrefix(input, "/") {
		return false, func() error { return r.mgr.Send(ctx, line) }
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/clear":
		r.mgr.Clear()
		fmt.Fprintln(r.out, "Conversation cleared.")

	case "/new":
		r.mgr.StartNewChat()
		fmt.Fprintln(r.out, "Started a new conversation.")

	case "/retry":
		if r.mgr.Error() == "" {
			fmt.Fprintln(r.out, "Nothing to retry.")
			return false, nil
		}
		return false, func() error { return r.mgr.Retry(ctx) }

	case "/sessions":
		printSessions(r.out, r.mgr.Sessions())

	case "/load":
		id, err := resolveSession(r.mgr.Sessions(), arg)
		if err != nil {
			errorColor.Fprintln(r.out, err)
			return false, nil
		}
		if err := r.mgr.LoadSession(id); err != nil {
			errorColor.Fprintln(r.out, err)
			return false, nil
		}
		fmt.Fprintf(r.out, "Loaded conversation %s.\n", id)
		printMessages(r.out, r.renderer, r.mgr.Messages())

	case "/delete":
		id, err := resolveSession(r.mgr.Sessions(), arg)
		if err != nil {
			errorColor.Fprintln(r.out, err)
			return false, nil
		}
		r.mgr.DeleteSession(id)
		fmt.Fprintf(r.out, "Deleted conversation %s.\n", id)

	case "/clear-all":
		r.mgr.ClearAllSessions()
		fmt.Fprintln(r.out, "All conversations deleted.")

	case "/history":
		messages := r.mgr.Messages()
		if len(messages) == 0 {
			fmt.Fprintln(r.out, "No messages yet.")
			return false, nil
		}
		printMessages(r.out, r.renderer, messages)

	case "/help":
		printHelp(r.out)

	default:
		errorColor.Fprintf(r.out, "Unknown command %s. /help lists commands.\n", cmd)
	}
	return false, nil
}

func (r *repl) handleEvent(e conversation.Event) {
	switch e.Type {
	case conversation.EventMessageAppended:
		if e.Message != nil && e.Message.Role == chat.RoleAssistant {
			r.streamID = e.Message.ID
			r.shown = ""
			assistantColor.Fprint(r.out, "assistant: ")
		}
	case conversation.EventMessageUpdated:
		if e.Message != nil && e.Message.ID == r.streamID {
			r.printDelta(e.Message.Content)
		}
	}
}

// printDelta writes the part of content not yet shown. Content that does
// not extend what is on screen is redrawn on a fresh line.
func (r *repl) printDelta(content string) {
	switch {
	case content == r.shown:
		return
	case strings.HasPrefix(content, r.shown):
		fmt.Fprint(r.out, content[len(r.shown):])
	default:
		fmt.Fprint(r.out, "\n", content)
	}
	r.shown = content
}

// drain handles events that were published before the send returned
func (r *repl) drain(events <-chan conversation.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			r.handleEvent(e)
		default:
			return
		}
	}
}

func (r *repl) finishReply(err error) {
	// Events can be dropped under load; catch up from the final state
	if err == nil && r.streamID != "" {
		for _, msg := range r.mgr.Messages() {
			if msg.ID == r.streamID {
				r.printDelta(msg.Content)
			}
		}
	}
	if r.streamID != "" {
		fmt.Fprintln(r.out)
	}
	r.streamID = ""
	r.shown = ""

	switch {
	case err == nil:
	case errors.Is(err, conversation.ErrSuperseded):
		dimColor.Fprintln(r.out, "(reply discarded)")
	default:
		if msg := r.mgr.Error(); msg != "" {
			errorColor.Fprintln(r.out, msg)
			dimColor.Fprintln(r.out, "Type /retry to send it again.")
		}
	}
	fmt.Fprintln(r.out)
}

// resolveSession accepts a 1-based index from /sessions, a full ID, or a
// unique ID prefix.
func resolveSession(sessions []chat.Summary, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("usage: give a session number or id (see /sessions)")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("no session #%d", n)
		}
		return sessions[n-1].ID, nil
	}

	var match string
	for _, s := range sessions {
		if s.ID == ref {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("session id %q is ambiguous", ref)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no session matches %q", ref)
	}
	return match, nil
}

func printSessions(out io.Writer, sessions []chat.Summary) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No saved conversations.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTITLE\tMESSAGES\tSAVED\tID")
	for i, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, s.Title, s.MessageCount, humanize.Time(s.Timestamp), s.ID)
	}
	w.Flush()
}

func printMessages(out io.Writer, renderer *render.Renderer, messages []chat.Message) {
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			userColor.Fprint(out, "you: ")
			fmt.Fprintln(out, msg.Content)
		default:
			assistantColor.Fprintln(out, "assistant:")
			fmt.Fprintln(out, renderer.Render(msg.Content))
		}
		fmt.Fprintln(out)
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, `Commands:
  /clear          Empty the current conversation
  /new            Archive the current conversation and start a new one
  /retry          Resend the last message that failed
  /history        Show the current conversation
  /sessions       List saved conversations
  /load <n|id>    Switch to a saved conversation
  /delete <n|id>  Delete a saved conversation
  /clear-all      Delete every conversation
  /help           Show this help
  /quit           Exit`)
}
