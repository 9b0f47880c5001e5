package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradetalk/tradetalk/pkg/client"
)

type chatPayload struct {
	Room    string `json:"room"`
	Content string `json:"content"`
}

type broadcastPayload struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var chatCmd = &cobra.Command{
	Use:   "chat <room>",
	Short: "Join a room and chat interactively over the WebSocket gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room := args[0]

		wsURL := strings.Replace(serverURL, "http", "ws", 1) + "/ws"
		header := http.Header{}
		header.Add("Cookie", "session="+session)

		manager := client.New(client.Options{
			URL:    wsURL,
			Header: header,
			OnConnect: func() {
				// There is no delivery acknowledgment on the wire, so
				// anything sent to the room while we were offline is
				// recovered from history instead.
				printHistory(room)
				fmt.Println("-- connected --")
			},
			OnDisconnect: func() {
				fmt.Println("-- disconnected, retrying --")
			},
		})
		defer manager.Close()

		sub := manager.Subscribe()
		defer sub.Cancel()
		go printFrames(sub)

		manager.Connect()

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			content := strings.TrimSpace(scanner.Text())
			if content == "" {
				continue
			}
			if err := manager.Send("chat", chatPayload{Room: room, Content: content}); err != nil {
				return err
			}
		}
		return scanner.Err()
	},
}

func printFrames(sub *client.Subscription) {
	for frame := range sub.C {
		switch frame.Type {
		case "chat":
			var msg broadcastPayload
			if err := json.Unmarshal(frame.Payload, &msg); err != nil {
				continue
			}
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.Kitchen), msg.Username, msg.Content)
		case "error":
			var p errorPayload
			if err := json.Unmarshal(frame.Payload, &p); err != nil {
				continue
			}
			fmt.Printf("!! server error: %s\n", p.Message)
		}
	}
}

func printHistory(room string) {
	messages, err := fetchHistory(serverURL, session, room)
	if err != nil {
		fmt.Printf("!! failed to fetch history: %v\n", err)
		return
	}
	for _, msg := range messages {
		fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.Kitchen), msg.Username, msg.Content)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
