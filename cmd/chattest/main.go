// Command chattest load-tests the chat WebSocket endpoint. Every client
// logs in as one of the given accounts and posts to the company channel.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Metrics tracks the run's results.
type Metrics struct {
	ConnectionsAttempted atomic.Int64
	ConnectionsSuccess   atomic.Int64
	ConnectionsFailed    atomic.Int64
	MessagesSent         atomic.Int64
	MessagesReceived     atomic.Int64
	Errors               atomic.Int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:8000", "API server host")
	emails := flag.String("emails", "admin1@example.com", "Comma-separated accounts to log in as")
	password := flag.String("password", "password123", "Password shared by the accounts")
	target := flag.String("target", "public", "Frame target: public, global or a user id")
	clients := flag.Int("clients", 20, "Number of concurrent clients")
	interval := flag.Duration("interval", 5*time.Second, "Delay between messages per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	accounts := strings.Split(*emails, ",")
	tokens := make([]string, len(accounts))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(8)
	for i, email := range accounts {
		i, email := i, email
		email = strings.TrimSpace(email)
		g.Go(func() error {
			token, err := login(ctx, *host, email, *password)
			if err != nil {
				return fmt.Errorf("login %s: %w", email, err)
			}
			tokens[i] = token
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Printf("Logged in %d accounts; starting %d clients against %s for %v", len(tokens), *clients, *host, *duration)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, tokens[i%len(tokens)], *target, i, *interval, stop, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stop)
	wg.Wait()
	printMetrics()
}

func login(ctx context.Context, host, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://%s/login", host), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

func runClient(host, token, target string, id int, interval time.Duration, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	metrics.ConnectionsAttempted.Add(1)

	// the token rides in the path, so it must be escaped as one segment
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws/" + url.PathEscape(token)}
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		metrics.ConnectionsFailed.Add(1)
		metrics.Errors.Add(1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	metrics.ConnectionsSuccess.Add(1)

	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
			metrics.MessagesReceived.Add(1)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			frame := map[string]string{
				"target":  target,
				"content": fmt.Sprintf("load test message from client %d", id),
			}
			if err := c.WriteJSON(frame); err != nil {
				metrics.Errors.Add(1)
				return
			}
			metrics.MessagesSent.Add(1)
		}
	}
}

func printMetrics() {
	log.Println("Results")
	log.Printf("Connections attempted:  %d", metrics.ConnectionsAttempted.Load())
	log.Printf("Connections successful: %d", metrics.ConnectionsSuccess.Load())
	log.Printf("Connections failed:     %d", metrics.ConnectionsFailed.Load())
	log.Printf("Messages sent:          %d", metrics.MessagesSent.Load())
	log.Printf("Messages received:      %d", metrics.MessagesReceived.Load())
	log.Printf("Errors:                 %d", metrics.Errors.Load())
}
