package main

import (
	"context"
	"os"

	"github.com/MrEthical07/goSession/cmd/gosessiond/internal/commands"
	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Debug        bool                     `help:"Enable debug logging."`
		Version      kong.VersionFlag         `help:"Print the version and exit."`
		Serve        commands.ServeCmd        `cmd:"" default:"withargs" help:"Serve the admin session API."`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Print a bcrypt hash for ADMIN_PASSWORD."`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("gosessiond"),
		kong.Description("Admin session service."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:   cli.Debug,
		Version: version,
		In:      os.Stdin,
		Out:     os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
