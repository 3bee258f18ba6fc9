package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/async"
	"github.com/alanbriolat/youtube-to-go/internal/boltdb"
	"github.com/alanbriolat/youtube-to-go/internal/config"
	"github.com/alanbriolat/youtube-to-go/internal/session"
	_ "github.com/alanbriolat/youtube-to-go/providers"
)

func main() {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = level
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = youtube_to_go.WithLogger(ctx, logger)

	app := &cli.App{
		Name:  "youtube-to-go",
		Usage: "download a YouTube video or a whole channel, optionally converting to audio",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "audio",
				Aliases: []string{"a"},
				Usage:   "convert downloaded videos to audio",
			},
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"u"},
				Usage:   "download the single video at `URL`",
			},
			&cli.StringFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "download every upload of `CHANNEL` (id, username or handle; default $" + config.EnvChannelID + ")",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "YouTube Data API `KEY` (default $" + config.EnvAPIKey + ")",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "load settings from TOML `FILE`",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "download at most `N` videos at once",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "remember finished downloads in `FILE` (empty to disable)",
			},
			&cli.StringFlag{
				Name:  "convert-command",
				Usage: "audio conversion command `TEMPLATE`, using {{.Input}} and {{.Output}}",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "only use provider `NAME`, one of: " + strings.Join(youtube_to_go.DefaultProviderRegistry.List(), ", "),
			},
			&cli.BoolFlag{
				Name:  "rebuild-catalog",
				Usage: "rebuild the channel catalog even if it exists",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("verbose") {
				level.SetLevel(zap.DebugLevel)
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			mode, err := cfg.Mode()
			if errors.Is(err, config.ErrNoMode) {
				_ = cli.ShowAppHelp(c)
				return err
			}
			if err := cfg.Validate(mode); err != nil {
				return err
			}
			return run(ctx, cfg, mode)
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

// loadConfig applies the config file, .env, the environment and then flags, each overriding the last.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	cfg.URL = c.String("url")
	cfg.Audio = c.Bool("audio")
	cfg.RebuildCatalog = c.Bool("rebuild-catalog")
	if c.IsSet("channel") {
		cfg.Channel = c.String("channel")
	}
	if c.IsSet("api-key") {
		cfg.APIKey = c.String("api-key")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("database") {
		cfg.Database = c.String("database")
	}
	if c.IsSet("provider") {
		cfg.Provider = c.String("provider")
	}
	if c.IsSet("convert-command") {
		cfg.ConvertCommand = c.String("convert-command")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, mode config.Mode) error {
	logger := zap.S()

	var db session.Database
	if cfg.Database != "" {
		index, err := boltdb.New(cfg.Database)
		if err != nil {
			return err
		}
		defer index.Close()
		db = index
	}

	sc := cfg.SessionConfig(db)
	var bar *progressbar.ProgressBar
	if mode == config.ModeURL {
		sc.ProgressCallback = func(url string) func(int64, int64) {
			bytesBar := progressbar.DefaultBytes(-1, "downloading")
			return func(downloaded int64, expected int64) {
				if expected > 0 && bytesBar.GetMax() != int(expected) {
					bytesBar.ChangeMax64(expected)
				}
				_ = bytesBar.Set64(downloaded)
			}
		}
	} else {
		bar = progressbar.Default(-1, "fetching")
		sc.OnFetch = func(url string, result *session.FetchResult, err error) {
			_ = bar.Add(1)
		}
	}
	ses, err := session.New(sc)
	if err != nil {
		return err
	}

	var summary *session.Summary
	if mode == config.ModeURL {
		logger.Infof("Downloading %s", cfg.URL)
		summary, err = ses.DownloadURL(ctx, cfg.URL)
	} else {
		logger.Infof("Downloading channel %s", cfg.Channel)
		summary, err = ses.DownloadChannel(ctx, cfg.Channel)
		_ = bar.Finish()
	}
	if summary != nil {
		report(logger, summary)
	}
	return err
}

func report(logger *zap.SugaredLogger, summary *session.Summary) {
	var downloaded, skipped, failed int
	var bytes uint64
	for _, result := range summary.Fetched {
		switch {
		case result == nil:
			failed++
		case result.Skipped != session.NotSkipped:
			skipped++
		default:
			downloaded++
			bytes += uint64(result.Size)
		}
	}
	logger.Infof("Downloaded %d videos (%s), skipped %d, failed %d", downloaded, humanize.Bytes(bytes), skipped, failed)
	if summary.Conversion != nil {
		logger.Infof("Converted %d files, %d failed", len(summary.Conversion.Succeeded()), len(summary.Conversion.Failed()))
	}
}
