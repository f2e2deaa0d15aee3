package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/verifield/fieldsync/internal/agent/models"
)

func (a *App) submitForm(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: submit <case-id>")
		return
	}

	formType, err := GetSimpleText(a.reader, "-Form type", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	payload, err := GetMultiline(a.reader, "-Form payload (JSON)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	f := &models.FormSubmission{
		CaseID:   args[0],
		FormType: formType,
		Payload:  []byte(payload),
	}

	if err := a.recorder.SaveFormSubmission(ctx, f); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Submitted form %s (queued for sync)\n", f.ID)
}
