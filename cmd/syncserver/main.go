package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/verifield/fieldsync/internal/devserver"
	"github.com/verifield/fieldsync/internal/logging"
)

func main() {

	configPath := flag.String("config", "", "path to the server config file")
	flag.Parse()

	cfg, err := devserver.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.NewDevelopment("info")
	if err != nil {
		log.Fatalf("%v", err)
	}

	var uploader devserver.Uploader
	if cfg.S3Endpoint != "" {
		uploader = devserver.NewS3Uploader(cfg)
	} else {
		uploader = devserver.NewLocalUploader("http://" + trimAddr(cfg.Addr))
	}

	handler := devserver.NewHandler(cfg, devserver.NewMemStore(), uploader, logger)

	log.Printf("sync server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler.Routes()); err != nil {
		log.Fatalf("%v", err)
	}

}

// trimAddr turns a bind address like ":8080" into a dialable host:port.
func trimAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "127.0.0.1" + addr
	}
	return addr
}
