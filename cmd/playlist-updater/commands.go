package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/justestif/spotify-playlist-updater/internal/updater"
	"github.com/justestif/spotify-playlist-updater/internal/web"
)

func lambdaCommand() *cli.Command {
	return &cli.Command{
		Name:   "lambda",
		Usage:  "Serve invocations from the AWS Lambda runtime (default)",
		Action: runLambda,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve updates over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: web.DefaultAddr,
			},
		},
		Action: runServe,
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Run a single update and print the response",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist",
				Aliases:  []string{"p"},
				Usage:    "Playlist ID to update",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "track",
				Aliases: []string{"t"},
				Usage:   "Track ID, in playlist order (repeatable)",
			},
		},
		Action: runUpdate,
	}
}

func runLambda(ctx context.Context, _ *cli.Command) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	lambda.Start(app.updater.Handle)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	server := web.NewServer(web.ServerConfig{
		Addr:    cmd.String("addr"),
		Updater: app.updater,
		Logger:  app.logger,
	})
	return server.ListenAndServe(ctx)
}

func runUpdate(ctx context.Context, cmd *cli.Command) error {
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	resp, err := app.updater.Handle(ctx, updater.Event{
		PlaylistID: cmd.String("playlist"),
		TrackIDs:   cmd.StringSlice("track"),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("update rejected with status %d", resp.StatusCode)
	}
	return nil
}
