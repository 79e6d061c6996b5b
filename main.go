package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"campusbites-telegram/api"
	"campusbites-telegram/bot"
	"campusbites-telegram/config"
	"campusbites-telegram/db"
	"campusbites-telegram/redisstore"
	"campusbites-telegram/services"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Telegram.CustomerToken == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := redisstore.Init(cfg.Redis); err != nil {
		fmt.Fprintln(os.Stderr, "redis:", err)
		os.Exit(1)
	}
	defer redisstore.Close()

	// Optional auto-migration for fresh databases. Set AUTO_MIGRATE=1 to enable.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	backend := api.New(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, log)
	rdb := redisstore.Client()

	pending := services.NewPendingDispatchStore(rdb)
	submitted := services.NewSubmittedBids(rdb)
	proofs := services.NewProofStore(rdb)

	starter := services.NewDispatchStarter(services.StartPolicy{
		Timeout:  cfg.Dispatch.StartTimeout,
		FailOpen: true,
	}, log)
	checkout := services.NewCheckoutService(pending, log)
	bids := services.NewBidService(submitted)
	fulfiller := services.NewFulfiller(proofs)

	customer, err := bot.NewCustomerBot(cfg, backend, checkout, starter, pending, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "customer bot:", err)
		os.Exit(1)
	}

	if cfg.Telegram.AgentToken != "" {
		agent, err := bot.NewAgentBot(cfg, backend, bids, submitted, proofs, fulfiller, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "agent bot:", err)
			os.Exit(1)
		}
		go agent.Start()
		log.Info("agent bot started")
	}

	if cfg.Telegram.RestaurantToken != "" {
		restaurant, err := bot.NewRestaurantBot(cfg, backend, log)
		if err != nil {
			fmt.Fprintln(os.Stderr, "restaurant bot:", err)
			os.Exit(1)
		}
		go restaurant.Start()
		log.Info("restaurant bot started")
	}

	log.Info("customer bot started")
	customer.Start()
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
