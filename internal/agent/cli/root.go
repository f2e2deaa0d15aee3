package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus(ctx context.Context) string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	} else if cur, err := a.session.Current(ctx); err == nil {
		s = cur.Username + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to FieldSync CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	for {
		fmt.Printf("fsync %s> ", a.getStatus(ctx))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: login, logout, (l)ist, show <id>, newcase, status <id> <status>,")
			fmt.Println("  delete <id>, submit <case-id>, attach <case-id>, sync, queue, conflicts,")
			fmt.Println("  resolve <conflict-id> <local|server>, notifications, metrics, exit")

		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "l", "list":
			a.list(ctx, args)
		case "show":
			a.show(ctx, args)
		case "newcase":
			a.newCase(ctx)
		case "status":
			a.updateStatus(ctx, args)
		case "delete":
			a.deleteCase(ctx, args)
		case "submit":
			a.submitForm(ctx, args)
		case "attach":
			a.attach(ctx, args)
		case "sync":
			a.sync(ctx)
		case "queue":
			a.queue(ctx)
		case "conflicts":
			a.conflicts(ctx)
		case "resolve":
			a.resolve(ctx, args)
		case "notifications":
			a.notifications(ctx)
		case "metrics":
			a.metrics(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
