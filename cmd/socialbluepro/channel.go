package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/config"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/db"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/dnscheck"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/mailer"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/models"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
)

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Mail channel management",
}

var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured channels",
	RunE:  runChannelList,
}

var channelTestCmd = &cobra.Command{
	Use:   "test [channel-id]",
	Short: "Diagnose a channel by connecting and sending a test message",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannelTest,
}

var channelDNSCmd = &cobra.Command{
	Use:   "dns [channel-id]",
	Short: "Check the DNS posture of a channel's sender domain",
	Args:  cobra.ExactArgs(1),
	RunE:  runChannelDNS,
}

var testRecipient string

func init() {
	channelTestCmd.Flags().StringVar(&testRecipient, "recipient", "", "Address to deliver the test message to")
	channelTestCmd.MarkFlagRequired("recipient")

	channelCmd.AddCommand(channelListCmd)
	channelCmd.AddCommand(channelTestCmd)
	channelCmd.AddCommand(channelDNSCmd)
}

func openChannelRepository() (*repository.ChannelRepository, *config.Config, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	return repository.NewChannelRepository(database.DB), cfg, func() { database.Close() }, nil
}

func runChannelList(cmd *cobra.Command, args []string) error {
	channels, _, closeDB, err := openChannelRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	list, err := channels.List(models.ChannelFilter{})
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-20s  %-30s  %-8s  %-7s  %s\n", "ID", "Name", "Server", "Default", "Active", "Purposes")
	fmt.Println(strings.Repeat("-", 120))
	for _, c := range list {
		fmt.Printf("%-36s  %-20s  %-30s  %-8v  %-7v  %s\n",
			c.ID, c.Name, c.Addr(), c.IsDefault, c.IsActive, strings.Join(c.PurposeList(), ","))
	}
	return nil
}

func runChannelTest(cmd *cobra.Command, args []string) error {
	channels, cfg, closeDB, err := openChannelRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	channel, err := channels.GetByID(args[0])
	if err != nil {
		return err
	}
	if channel == nil {
		return fmt.Errorf("channel %s not found", args[0])
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	harness := mailer.NewHarness(mailer.NewTransport(cfg.Delivery.Timeout, logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Delivery.Timeout)
	defer cancel()

	fmt.Printf("Testing channel %q (%s)...\n\n", channel.Name, channel.Addr())
	log := harness.Diagnose(ctx, channel, testRecipient)

	printStage := func(name string, ok bool, msg string) {
		status := "FAIL"
		if ok {
			status = "OK"
		}
		fmt.Printf("  [%-4s] %s: %s\n", status, name, msg)
	}
	printStage("Connection", log.ConnectionTest, log.ConnectionMessage)
	printStage("Test email", log.EmailTest, log.EmailMessage)

	if log.MessageID != "" {
		fmt.Printf("\n  Message-ID: %s\n", log.MessageID)
	}
	if log.ErrorCategory != "" {
		fmt.Printf("\n  Category: %s\n  Details:  %s\n", log.ErrorCategory, log.ErrorDetails)
	}
	fmt.Printf("\nCompleted in %s\n", log.Elapsed.Round(time.Millisecond))

	if !log.Success {
		os.Exit(1)
	}
	return nil
}

func runChannelDNS(cmd *cobra.Command, args []string) error {
	channels, _, closeDB, err := openChannelRepository()
	if err != nil {
		return err
	}
	defer closeDB()

	channel, err := channels.GetByID(args[0])
	if err != nil {
		return err
	}
	if channel == nil {
		return fmt.Errorf("channel %s not found", args[0])
	}

	at := strings.LastIndex(channel.FromEmail, "@")
	if at < 0 {
		return fmt.Errorf("channel %q has no sender domain", channel.Name)
	}
	domain := channel.FromEmail[at+1:]

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report, err := dnscheck.CheckSender(ctx, domain, channel.DKIMSelector)
	if err != nil {
		return err
	}

	fmt.Printf("DNS posture for %s:\n\n", report.Domain)
	for _, rec := range report.Records {
		fmt.Printf("  [%-7s] %s", rec.Status, rec.Name)
		if rec.Value != "" {
			fmt.Printf(": %s", rec.Value)
		}
		if rec.Detail != "" {
			fmt.Printf(" (%s)", rec.Detail)
		}
		fmt.Println()
	}
	if !report.Healthy {
		fmt.Println("\nDomain needs attention before bulk sending.")
		os.Exit(1)
	}
	return nil
}
