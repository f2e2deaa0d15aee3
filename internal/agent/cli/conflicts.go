package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/verifield/fieldsync/internal/agent/models"
)

func (a *App) conflicts(ctx context.Context) {
	items, err := a.store.Conflicts.ListPending(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}

	if len(items) == 0 {
		fmt.Println("No pending conflicts")
		return
	}

	for _, c := range items {
		fmt.Printf("%s  %s %s  %s  local v%d vs server v%d\n",
			c.ID, c.EntityType, c.EntityID, c.ConflictType, c.LocalVersion, c.ServerVersion)
		fmt.Printf("  local:  %s\n", c.LocalData)
		fmt.Printf("  server: %s\n", c.ServerData)
	}
}

func (a *App) resolve(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: resolve <conflict-id> <local|server>")
		return
	}

	var strategy models.ResolutionStrategy
	switch args[1] {
	case "local":
		strategy = models.ResolveLocalWins
	case "server":
		strategy = models.ResolveServerWins
	default:
		fmt.Println("Usage: resolve <conflict-id> <local|server>")
		return
	}

	if err := a.resolver.Resolve(ctx, args[0], strategy, nil); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Conflict resolved")
}

func (a *App) notifications(ctx context.Context) {
	items, err := a.store.Notifications.ListUnread(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}

	if len(items) == 0 {
		fmt.Println("No unread notifications")
		return
	}

	for _, n := range items {
		fmt.Printf("%s  [%s] %s: %s\n", n.ID, n.Type, n.Title, n.Message)
		if err := a.store.Notifications.MarkRead(ctx, n.ID); err != nil {
			log.Println(err.Error())
		}
	}
}
