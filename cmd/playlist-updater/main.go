// Command playlist-updater replaces the tracks of a Spotify playlist. It runs
// as an AWS Lambda function by default, or locally through the serve and
// update commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:   "playlist-updater",
		Usage:  "Replace the tracks of a Spotify playlist",
		Action: runLambda,
		Commands: []*cli.Command{
			lambdaCommand(),
			serveCommand(),
			updateCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
