package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/verifield/fieldsync/internal/common"
)

func (a *App) login(ctx context.Context) {

	userName, err := GetSimpleText(a.reader, "-Enter username", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	err = a.session.Login(ctx, a.client, userName, string(password))
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			// Offline is not an error state. Local work continues and the
			// queue replays once the server is reachable again.
			log.Printf("Server unavailable, continuing offline with local data")
			a.setMode(ModeOffline)
		} else {
			log.Printf("Login unsuccessfull: %s", err.Error())
		}
		return
	}

	a.userName = userName
	a.setMode(ModeOnline)
	log.Printf("Login successfull")
}

func (a *App) logout(ctx context.Context) {
	if err := a.session.Logout(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	a.userName = ""
}
