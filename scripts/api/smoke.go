// End-to-end check of the dashboard relay against a running API and worker.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	baseURL   = getenv("API_URL", "http://localhost:8080/v1")
	redisURL  = getenv("REDIS_URL", "")
	user      = getenv("DASHBOARD_ADMIN_USER", "admin")
	password  = getenv("DASHBOARD_ADMIN_PASSWORD", "")
	guildID   = getenv("SMOKE_GUILD_ID", "")
	channelID = getenv("SMOKE_CHANNEL_ID", "")
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

type record struct {
	ID            string   `json:"id"`
	State         string   `json:"state"`
	MessageID     string   `json:"externalMessageId"`
	PendingAction *string  `json:"pendingAction"`
	Winners       []string `json:"winners"`
}

func main() {
	if guildID == "" || channelID == "" || password == "" {
		log.Fatal("SMOKE_GUILD_ID, SMOKE_CHANNEL_ID and DASHBOARD_ADMIN_PASSWORD are required")
	}
	ctx := context.Background()

	token := login()
	id := create(token)
	log.Printf("created %s, waiting for the worker to announce it", id)

	g := waitFor(token, id, func(r record) bool { return r.State == "ACTIVE" && r.PendingAction == nil })
	if g.MessageID == "" {
		log.Fatal("start: worker acknowledged START without an announcement")
	}

	doAuth(token, "POST", "/giveaways/"+id+"/actions", map[string]any{"action": "END"}, nil, http.StatusAccepted)
	g = waitFor(token, id, func(r record) bool { return r.State == "ENDED" && r.PendingAction == nil })
	log.Printf("ended %s with %d winner(s)", id, len(g.Winners))

	if redisURL != "" {
		checkEvents(ctx, id)
	}

	doAuth(token, "POST", "/giveaways/"+id+"/actions", map[string]any{"action": "DELETE"}, nil, http.StatusAccepted)
	waitGone(token, id)

	fmt.Println("✓ giveaway relay passed")
}

func login() string {
	var resp struct{ Token string }
	doJSON("POST", "/auth/login", map[string]any{"username": user, "password": password}, &resp, http.StatusOK)
	if resp.Token == "" {
		log.Fatal("login: empty token")
	}
	return resp.Token
}

func create(tok string) string {
	var resp record
	doAuth(tok, "POST", "/giveaways", map[string]any{
		"externalGuildId":   guildID,
		"externalChannelId": channelID,
		"prizeDescription":  "smoke test " + uuid.NewString()[:8],
		"winnerCount":       1,
		"durationMs":        int64(10 * time.Minute / time.Millisecond),
	}, &resp, http.StatusAccepted)
	if resp.State != "SCHEDULED" {
		log.Fatalf("create: want SCHEDULED got %s", resp.State)
	}
	return resp.ID
}

func waitFor(tok, id string, done func(record) bool) record {
	deadline := time.Now().Add(time.Minute)
	for time.Now().Before(deadline) {
		var r record
		doAuth(tok, "GET", "/giveaways/"+id, nil, &r, http.StatusOK)
		if done(r) {
			return r
		}
		time.Sleep(2 * time.Second)
	}
	log.Fatalf("%s: timed out waiting for the worker", id)
	return record{}
}

func waitGone(tok, id string) {
	deadline := time.Now().Add(time.Minute)
	for time.Now().Before(deadline) {
		if status(tok, "GET", "/giveaways/"+id) == http.StatusNotFound {
			return
		}
		time.Sleep(2 * time.Second)
	}
	log.Fatalf("%s: still present after DELETE", id)
}

func checkEvents(ctx context.Context, id string) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	msgs, err := rdb.XRevRangeN(ctx, "giveaways.events", "+", "-", 200).Result()
	if err != nil {
		log.Fatalf("redis xrevrange: %v", err)
	}
	seen := map[string]bool{}
	for _, m := range msgs {
		if m.Values["giveaway_id"] == id {
			if kind, ok := m.Values["kind"].(string); ok {
				seen[kind] = true
			}
		}
	}
	for _, kind := range []string{"started", "ended"} {
		if !seen[kind] {
			log.Fatalf("events: no %q event for %s", kind, id)
		}
	}
}

func doAuth(token, method, path string, body, out any, want int) {
	doReq(method, path, token, body, out, want)
}

func doJSON(method, path string, body, out any, want int) {
	doReq(method, path, "", body, out, want)
}

func status(token, method, path string) int {
	req, _ := http.NewRequest(method, baseURL+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	res.Body.Close()
	return res.StatusCode
}

func doReq(method, path, token string, body, out any, want int) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatalf("%s %s encode: %v", method, path, err)
		}
	}
	req, _ := http.NewRequest(method, baseURL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != want {
		log.Fatalf("%s %s: want %d got %d", method, path, want, res.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			log.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
}
