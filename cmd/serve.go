package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timegrid/internal/config"
	"github.com/Tiliavir/timegrid/internal/server"
	"github.com/Tiliavir/timegrid/internal/store"
)

var (
	serveAddr string
	serveDB   string
	serveSeed bool
	serveDev  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timesheet server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default ~/.timegrid/timegrid.db)")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Create a demo user, tasks and pay period in an empty database")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "Accept a login as bearer token")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Serve.DBPath = serveDB
	}
	dbPath, err := cfg.DBPath()
	if err != nil {
		return err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Printf("using database %s", dbPath)

	if serveSeed {
		if err := server.Seed(st, time.Now()); err != nil {
			return err
		}
	}
	srv := server.New(st, server.Options{DevMode: cfg.Serve.DevMode || serveDev})
	return srv.Run(cfg.Serve.Addr)
}
