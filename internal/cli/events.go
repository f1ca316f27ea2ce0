package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/fhecity/internal/model"
)

func newEventsCmd() *cobra.Command {
	var (
		jsonOutput bool
		follow     bool
		player     string
		eventType  string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent city events",
		Long: `Show recent city events, or stream them live with --follow.

Events include:
  - player_joined: A player joined the city
  - building_placed: A player submitted a placement (the outcome is secret)

--type keeps only one kind of event. With --follow, --player restricts the
stream to one player's events. Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := model.EventType(eventType)
			if filter != "" && filter != model.EventPlayerJoined && filter != model.EventBuildingPlaced {
				return fmt.Errorf("unknown event type %q", eventType)
			}

			if follow {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return streamEvents(ctx, player, filter, jsonOutput || cfg.Output == "json")
			}

			var result EventList
			if err := client.Get(fmt.Sprintf("/api/v1/city/events?limit=%d", limit), &result); err != nil {
				return err
			}
			if filter != "" {
				kept := result.Events[:0]
				for _, e := range result.Events {
					if e.Type == filter {
						kept = append(kept, e)
					}
				}
				result.Events = kept
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream events as they happen")
	cmd.Flags().StringVar(&player, "player", "", "Only stream events for this player ID")
	cmd.Flags().StringVar(&eventType, "type", "", "Only show events of this type")
	cmd.Flags().IntVar(&limit, "limit", 50, "Number of recent events to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output streamed events as JSON lines")

	return cmd
}

// sseFrame is one dispatched server-sent event
type sseFrame struct {
	Event string
	Data  string
}

// readSSE calls fn for each complete frame on r. Comment lines such as
// keepalives are skipped. Returning false from fn stops the read.
func readSSE(r io.Reader, fn func(sseFrame) bool) error {
	scanner := bufio.NewScanner(r)
	var frame sseFrame
	var data []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if frame.Event != "" || len(data) > 0 {
				frame.Data = strings.Join(data, "\n")
				if !fn(frame) {
					return nil
				}
			}
			frame, data = sseFrame{}, nil
		case strings.HasPrefix(line, ":"):
			// keepalive
		case strings.HasPrefix(line, "event:"):
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}

func streamEvents(ctx context.Context, playerID string, filter model.EventType, jsonOutput bool) error {
	streamURL := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/city/events/stream"
	if playerID != "" {
		streamURL += "?player=" + url.QueryEscape(playerID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	// No client timeout: the stream stays open until cancelled
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	err = readSSE(resp.Body, func(f sseFrame) bool {
		if f.Event == "connected" {
			if !jsonOutput {
				fmt.Println("Connected to city events")
			}
			return true
		}
		var e model.Event
		if err := json.Unmarshal([]byte(f.Data), &e); err != nil {
			fmt.Fprintf(os.Stderr, "skipping unreadable %s event: %v\n", f.Event, err)
			return true
		}
		if filter != "" && e.Type != filter {
			return true
		}
		if jsonOutput {
			line, _ := json.Marshal(e)
			fmt.Println(string(line))
		} else {
			printEventLine(e)
		}
		return true
	})
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}
