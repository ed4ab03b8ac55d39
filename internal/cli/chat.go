package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gopherai-chat/internal/chatclient"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a running server from the terminal",
	Long: `chat opens or resumes a session on a running gopherai-chat server.

Lines are sent as messages. Commands:
  /new            start a new session
  /list           list your sessions
  /upload <path>  attach a PDF to the current session
  /history        print the current session
  /quit           exit`,
	RunE: runChat,
}

var (
	chatServer  string
	chatToken   string
	chatSession string
	chatTimeout time.Duration
)

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:5000", "server base URL")
	chatCmd.Flags().StringVar(&chatToken, "token", os.Getenv("CHAT_TOKEN"), "bearer token (default $CHAT_TOKEN)")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session id")
	chatCmd.Flags().DurationVar(&chatTimeout, "timeout", 90*time.Second, "per-request timeout")
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatToken == "" {
		return fmt.Errorf("a bearer token is required (--token or CHAT_TOKEN)")
	}
	client := chatclient.New(chatServer, chatToken, chatTimeout)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	conv, err := openConversation(ctx, client, chatSession)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session %s\n", conv.SessionID())
	printEntries(out, conv.Entries())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil
		case line == "/new":
			next, err := openConversation(ctx, client, "")
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			conv = next
			fmt.Fprintf(out, "session %s\n", conv.SessionID())
		case line == "/list":
			sessions, err := client.ListSessions(ctx)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			for _, s := range sessions {
				fmt.Fprintf(out, "%s  %s  %s\n", s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Title)
			}
		case line == "/history":
			printEntries(out, conv.Entries())
		case strings.HasPrefix(line, "/upload "):
			if err := uploadFile(ctx, client, conv.SessionID(), strings.TrimSpace(strings.TrimPrefix(line, "/upload "))); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintln(out, "document attached")
		default:
			reply, err := conv.Send(ctx, line)
			if err != nil {
				fmt.Fprintln(out, chatclient.FailedNotice, "("+err.Error()+")")
				continue
			}
			fmt.Fprintln(out, reply)
		}
	}
}

func openConversation(ctx context.Context, client *chatclient.Client, sessionID string) (*chatclient.Conversation, error) {
	if sessionID == "" {
		session, err := client.CreateSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("create session failed: %w", err)
		}
		return chatclient.NewConversation(client, session.ID, nil), nil
	}
	turns, err := client.GetTurns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	return chatclient.NewConversation(client, sessionID, turns), nil
}

func uploadFile(ctx context.Context, client *chatclient.Client, sessionID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = client.UploadDocument(ctx, sessionID, filepath.Base(path), f)
	return err
}

func printEntries(w io.Writer, entries []chatclient.Entry) {
	for _, e := range entries {
		if e.Role == "system" {
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", e.Role, e.Text)
	}
}
