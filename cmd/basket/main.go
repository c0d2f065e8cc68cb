// Command basket is a terminal follower: it signs in, selects a list, and
// mirrors it live through the client state store and the change-feed bridge.
// Useful for watching a shared list update while someone else shops.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mwilkes/basket/internal/cache"
	"github.com/mwilkes/basket/internal/client"
	"github.com/mwilkes/basket/internal/logging"
	"github.com/mwilkes/basket/internal/model"
	"github.com/mwilkes/basket/internal/state"
)

func main() {
	godotenv.Load()

	var (
		serverURL = flag.String("server", envOr("BASKET_SERVER_URL", "http://localhost:8080"), "server base URL")
		email     = flag.String("email", os.Getenv("BASKET_EMAIL"), "account email")
		password  = flag.String("password", os.Getenv("BASKET_PASSWORD"), "account password")
		listID    = flag.Int64("list", 0, "list id to follow (0 = first active list)")
		cachePath = flag.String("cache", envOr("BASKET_CACHE_PATH", "basket-cache.db"), "snapshot cache path")
		interval  = flag.Duration("interval", 5*time.Second, "redraw interval")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or BASKET_EMAIL/BASKET_PASSWORD)")
	}

	logger := logging.Setup(os.Getenv("BASKET_LOG_LEVEL"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := client.New(*serverURL)
	session, err := api.Login(ctx, *email, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	snaps, err := cache.Open(*cachePath)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer snaps.Close()

	store := state.NewStore(api, snaps, session.User.ID, logger.With("component", "state"))
	if err := store.Refresh(ctx); err != nil {
		log.Fatalf("initial refresh: %v", err)
	}

	target := pickList(store, *listID)
	if target == nil {
		log.Fatal("no list to follow; create one first")
	}
	store.SetCurrentList(target)
	if err := store.LoadCurrent(ctx); err != nil {
		logger.Warn("load current list", "error", err)
	}

	bridge := state.NewBridge(store, logger.With("component", "bridge"))
	if err := bridge.Dial(ctx, *serverURL, api.Token()); err != nil {
		// Keep going without live updates; the periodic refresh still works.
		logger.Warn("feed unavailable", "error", err)
	}
	defer bridge.Close()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	render(store, bridge)
	for {
		select {
		case <-ticker.C:
			if !bridge.Connected() {
				if err := store.Refresh(ctx); err != nil {
					logger.Warn("refresh", "error", err)
				}
			}
			render(store, bridge)
		case <-ctx.Done():
			fmt.Println("\nbye")
			return
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func pickList(store *state.Store, id int64) *model.List {
	lists := append(store.Active(), store.Shared()...)
	if len(lists) == 0 {
		return nil
	}
	if id == 0 {
		return &lists[0]
	}
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

func render(store *state.Store, bridge *state.Bridge) {
	current := store.Current()
	if current == nil {
		fmt.Println("(list gone)")
		return
	}

	items := store.Items()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsPurchased != items[j].IsPurchased {
			return !items[i].IsPurchased
		}
		return items[i].Category < items[j].Category
	})

	status := "live"
	if !bridge.Connected() {
		status = "polling"
	}
	if store.Degraded() {
		status = "cached"
	}

	fmt.Print("\033[H\033[2J")
	fmt.Printf("%s — %d/%d purchased [%s]\n\n", current.Name, current.PurchasedCount, current.ItemCount, status)
	for _, item := range items {
		mark := " "
		if item.IsPurchased {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] %s", mark, item.Name)
		if item.Quantity != 1 || item.Unit != "" {
			line += fmt.Sprintf(" (%g %s)", item.Quantity, item.Unit)
		}
		fmt.Println(line)
	}
	if err := store.LastError(); err != nil {
		fmt.Printf("\nlast error: %v\n", err)
	}
}
