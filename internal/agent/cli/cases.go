package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/repositories/cases"
)

func (a *App) list(ctx context.Context, args []string) {
	filter := cases.ListFilter{}
	if len(args) > 0 {
		filter.Status = models.CaseStatus(args[0])
	}

	items, err := a.store.Cases.List(ctx, filter)
	if err != nil {
		log.Println(err.Error())
		return
	}

	for _, c := range items {
		fmt.Printf("%s  [%s/%s]  %s  %s\n", c.ID, c.Status, c.SyncStatus, c.CustomerName, c.Address)
	}

	counts, err := a.store.Cases.CountBySyncStatus(ctx)
	if err == nil {
		fmt.Printf("synced: %d, pending: %d, conflict: %d\n",
			counts[models.SyncStatusSynced], counts[models.SyncStatusPending], counts[models.SyncStatusConflict])
	}
}

func (a *App) show(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: show <id>")
		return
	}

	c, err := a.store.Cases.GetByID(ctx, args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Printf("Case %s (v%d, %s)\n", c.ID, c.Version, c.SyncStatus)
	fmt.Printf("  Customer: %s, %s\n", c.CustomerName, c.CustomerPhone)
	fmt.Printf("  Address:  %s\n", c.Address)
	fmt.Printf("  Type:     %s / %s / %s\n", c.VerificationType, c.Product, c.ClientName)
	fmt.Printf("  Status:   %s (assigned to %s)\n", c.Status, c.AssignedTo)
	if c.Notes != "" {
		fmt.Printf("  Notes:    %s\n", c.Notes)
	}

	forms, err := a.store.Forms.ListByCase(ctx, c.ID)
	if err == nil {
		for _, f := range forms {
			fmt.Printf("  form %s [%s] %s\n", f.ID, f.SyncStatus, f.FormType)
		}
	}
	atts, err := a.store.Attachments.ListByCase(ctx, c.ID)
	if err == nil {
		for _, at := range atts {
			fmt.Printf("  attachment %s [%s/%s] %s\n", at.ID, at.SyncStatus, at.UploadStatus, at.FileName)
		}
	}
}

func (a *App) newCase(ctx context.Context) {
	c := &models.Case{}

	var err error
	if c.CustomerName, err = GetSimpleText(a.reader, "-Customer name", os.Stdout); err != nil {
		log.Printf("error: %v", err)
		return
	}
	if c.CustomerPhone, err = GetSimpleText(a.reader, "-Customer phone", os.Stdout); err != nil {
		log.Printf("error: %v", err)
		return
	}
	if c.Address, err = GetSimpleText(a.reader, "-Address", os.Stdout); err != nil {
		log.Printf("error: %v", err)
		return
	}
	if c.VerificationType, err = GetSimpleText(a.reader, "-Verification type", os.Stdout); err != nil {
		log.Printf("error: %v", err)
		return
	}
	priority, err := GetSimpleText(a.reader, "-Priority (number)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	c.Priority, _ = strconv.Atoi(priority)
	c.AssignedTo = a.userName

	if err := a.recorder.SaveCase(ctx, c); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Created case %s (queued for sync)\n", c.ID)
}

func (a *App) updateStatus(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: status <id> <PENDING|ASSIGNED|IN_PROGRESS|COMPLETED|FAILED>")
		return
	}

	if err := a.recorder.UpdateCaseStatus(ctx, args[0], models.CaseStatus(args[1])); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Status updated (queued for sync)")
}

func (a *App) deleteCase(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delete <id>")
		return
	}

	if err := a.recorder.DeleteCase(ctx, args[0]); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Case deleted (queued for sync)")
}
