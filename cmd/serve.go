package cmd

import (
	"fmt"

	"github.com/bjornbryggman/eu4-modding-tools/internal/web"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the province gallery and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("host") {
			serveHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		srv := &web.Server{
			Store:   s,
			Addr:    fmt.Sprintf("%s:%d", serveHost, servePort),
			Origins: cfg.Server.CORSOrigins,
		}
		logger.Debug().Strs("origins", srv.Origins).Msg("cors")
		return srv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
