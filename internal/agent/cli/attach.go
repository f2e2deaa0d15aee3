package cli

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/filex"
)

// attachmentsDir is where captured files are staged until their upload
// action completes.
const attachmentsDir = "attachments"

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: attach <case-id>")
		return
	}

	src, err := GetSimpleText(a.reader, "-Path to file", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	info, err := os.Stat(src)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	dir, err := filex.EnsureSubDir(attachmentsDir)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	name := filepath.Base(src)
	staged, err := filex.StageFile(dir, name, src)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	att := &models.Attachment{
		CaseID:    args[0],
		FileName:  name,
		MimeType:  mime.TypeByExtension(filepath.Ext(name)),
		SizeBytes: info.Size(),
		LocalPath: staged,
	}

	if err := a.recorder.SaveAttachment(ctx, att); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Attached %s as %s (queued for upload)\n", name, att.ID)
}
