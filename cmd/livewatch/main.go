package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/client"
	"github.com/retrocraftdevops/seitech-sub002/internal/config"
	"github.com/retrocraftdevops/seitech-sub002/internal/domain"
	"github.com/retrocraftdevops/seitech-sub002/internal/erp"
)

// livewatch follows the live feeds of one discussion and one user from a
// terminal, printing every event until interrupted.
func main() {
	discussionID := flag.Int("discussion", 0, "discussion id to follow")
	userID := flag.Int("user", 0, "user id for streaks and notifications")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	rpc := erp.NewClient(cfg.ERPBaseURL, 0)
	m := client.NewManager(client.Options{
		URL:              cfg.GatewayURL,
		HandshakeTimeout: cfg.HandshakeTimeout,
		BackoffBase:      cfg.BackoffBase,
		BackoffCap:       cfg.BackoffCap,
		MaxRetries:       cfg.MaxRetries,
		SendBuffer:       cfg.SendBuffer,
		PingPeriod:       cfg.PingPeriod,
	})

	m.OnConnect(func() { log.Info().Msg("connected") })
	m.OnDisconnect(func() { log.Warn().Msg("disconnected") })
	m.OnError(func(err error) { log.Error().Err(err).Msg("connection error") })

	if *discussionID > 0 {
		feed := client.NewDiscussionFeed(m, rpc, *discussionID, client.DiscussionFeedCallbacks{
			OnUpvote: func(count int) {
				log.Info().Int("discussion", *discussionID).Int("upvotes", count).Msg("upvote")
			},
			OnReply: func(r domain.Reply) {
				log.Info().Int("discussion", *discussionID).Str("author", r.AuthorName).
					Str("content", r.Content).Msg("reply")
			},
			OnViewCount: func(count int) {
				log.Info().Int("discussion", *discussionID).Int("views", count).Msg("view count")
			},
		})
		defer feed.Close()
		if err := feed.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("initial thread fetch failed")
		}
	}

	if *userID > 0 {
		streaks := client.NewStreakFeed(m, rpc, *userID, func(milestone int, badge string) {
			log.Info().Int("milestone", milestone).Str("badge", badge).Msg("streak milestone")
		})
		defer streaks.Close()

		bell := client.NewNotificationBell(m, *userID)
		defer bell.Close()
	}

	board := client.NewLeaderboardFeed(m, rpc, func(category, period string) {
		log.Info().Str("category", category).Str("period", period).Msg("leaderboard updated")
	})
	defer board.Close()

	m.Connect(ctx)
	<-ctx.Done()
	m.Disconnect()
	log.Info().Msg("bye")
}
