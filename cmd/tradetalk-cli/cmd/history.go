package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type historyMessage struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

var historyCmd = &cobra.Command{
	Use:   "history <room>",
	Short: "Print the message history of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messages, err := fetchHistory(serverURL, session, args[0])
		if err != nil {
			return err
		}
		for _, msg := range messages {
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format(time.RFC3339), msg.Username, msg.Content)
		}
		return nil
	},
}

// fetchHistory pulls the ordered room history through the REST surface.
// The chat command reuses it on reconnect to recover anything missed while
// disconnected.
func fetchHistory(baseURL, sessionToken, room string) ([]historyMessage, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/messages/"+room, nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: sessionToken})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var messages []historyMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return messages, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
