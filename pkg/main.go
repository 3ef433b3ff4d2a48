package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	pkg "github.com/lightpath/huddle/pkg/internal"
	"github.com/lightpath/huddle/pkg/internal/database"
	"github.com/lightpath/huddle/pkg/internal/http"
	"github.com/lightpath/huddle/pkg/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Connect to the video provider
	services.SetupLiveKit()

	// Server
	http.NewServer()
	go http.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.AddFunc("@every 30m", services.DoAutoCancelStaleMeetings)
	quartz.AddFunc("@every 5m", services.DoReconcileOngoingCalls)
	quartz.Start()

	log.Info().Msgf("%s v%s is started...", color.New(color.FgHiCyan).Sprint("Huddle"), pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("Huddle v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
}
