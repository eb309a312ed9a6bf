// The simulator runs the full messaging stack in one process — in-memory
// store, static directory, real HTTP and websocket transport — and drives
// randomized chatter through the client library. It exercises the send
// pipeline, delivery push and presence end to end without MongoDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"ripple-social/internal/client"
	"ripple-social/internal/database"
	"ripple-social/internal/directory"
	"ripple-social/internal/engine"
	"ripple-social/internal/handlers"
	"ripple-social/internal/media"
	"ripple-social/internal/middleware"
	"ripple-social/internal/models"
	"ripple-social/internal/presence"
	"ripple-social/internal/realtime"
	"ripple-social/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

type simUser struct {
	profile  models.Profile
	api      *client.API
	listener *client.Listener
	received int
	mu       sync.Mutex
}

func main() {
	numUsers := flag.Int("users", 4, "simulated users")
	numMessages := flag.Int("messages", 25, "messages per user")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	resolver := directory.NewStatic()
	metrics := utils.NewMetricsCollector()

	registry := presence.NewRegistry(nil, metrics, logger)
	hub := realtime.NewHub(registry, metrics, logger)
	registry.SetBroadcaster(hub)
	registry.Start()
	go hub.Run()
	defer hub.Stop()
	defer registry.Stop()

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, engine.Dependencies{
		Store:     database.NewMemoryMessageStore(),
		Resolver:  resolver,
		Publisher: hub,
		Metrics:   metrics,
		Logger:    logger,
	})

	mediaStore, err := media.NewDiskStore(os.TempDir(), "/media")
	if err != nil {
		fmt.Fprintf(os.Stderr, "media store: %v\n", err)
		os.Exit(1)
	}

	server := handlers.NewServer(system, eng, hub, registry, mediaStore, metrics, logger, 5*time.Second)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	httpServer := &http.Server{Handler: server.Routes(nil)}
	go httpServer.Serve(listener)
	defer httpServer.Close()

	baseURL := "http://" + listener.Addr().String()
	wsURL := "ws://" + listener.Addr().String() + "/ws"

	ctx := context.Background()
	users := make([]*simUser, *numUsers)
	for i := range users {
		profile := models.Profile{
			ID:       uuid.New(),
			Username: fmt.Sprintf("user%d", i),
			FullName: fmt.Sprintf("Simulated User %d", i),
		}
		resolver.Add(profile)

		token, err := middleware.GenerateToken(profile.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(1)
		}

		user := &simUser{profile: profile, api: client.NewAPI(baseURL, token)}
		user.listener, err = client.Dial(ctx, wsURL, token, profile.ID, client.Events{
			OnMessage: func(*models.ResolvedMessage) {
				user.mu.Lock()
				user.received++
				user.mu.Unlock()
			},
		}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dial: %v\n", err)
			os.Exit(1)
		}
		users[i] = user
	}

	start := time.Now()
	var sent, failed int
	for round := 0; round < *numMessages; round++ {
		for i, user := range users {
			peer := users[rand.Intn(len(users))]
			if peer == user {
				peer = users[(i+1)%len(users)]
			}
			chat := client.NewChat(user.api, user.profile.ID, peer.profile.ID, logger)
			if _, err := chat.Send(ctx, fmt.Sprintf("hello from %s, round %d", user.profile.Username, round), nil); err != nil {
				failed++
				continue
			}
			sent++
		}
	}

	// Let in-flight pushes land before reading the counters.
	time.Sleep(500 * time.Millisecond)

	var delivered int
	for _, user := range users {
		user.mu.Lock()
		delivered += user.received
		user.mu.Unlock()
		user.listener.Close()
	}

	fmt.Printf("simulation complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  users:     %d\n", len(users))
	fmt.Printf("  sent:      %d\n", sent)
	fmt.Printf("  failed:    %d\n", failed)
	fmt.Printf("  delivered: %d (realtime pushes received)\n", delivered)
}
