package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/oneaccess/internal/core/events"
	"github.com/frahmantamala/oneaccess/internal/notifier"
	"github.com/frahmantamala/oneaccess/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample events on the in-process bus and through the webhook notifier`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a sample access.decided event, or a generic event of any other type, to the bus and the configured webhook`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventGate     string
	eventDecision string
	eventData     string
)

func sampleEvent(eventType string, at time.Time) events.Event {
	if eventType == events.EventTypeAccessDecided {
		return events.NewAccessDecidedEvent(events.AccessDecision{
			GateID:     eventGate,
			ReaderID:   "cli",
			UserID:     "U_ALICE",
			CompanyID:  "ACME",
			Decision:   eventDecision,
			Reason:     "OK",
			DoorStatus: "UNKNOWN",
		}, at)
	}
	return events.BaseEvent{
		ID:        fmt.Sprintf("test-%d", at.UnixNano()),
		Type:      eventType,
		Timestamp: at,
		Data: map[string]interface{}{
			"message": eventData,
			"source":  "cli-command",
		},
	}
}

func publishTestEvent(ctx context.Context, eventType string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)
	lg := logger.LoggerWrapper()

	if ctx == nil {
		ctx = context.Background()
	}
	eventBus := events.NewEventBus(lg)

	eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var dispatcher *notifier.Dispatcher
	if cfg.Notifier.WebhookURL != "" {
		dispatcher = notifier.NewDispatcher(notifier.Config{
			WebhookURL: cfg.Notifier.WebhookURL,
			Timeout:    cfg.Notifier.Timeout,
			MaxWorkers: 1,
		}, lg)
		dispatcher.Subscribe(eventBus, eventType)
		dispatcher.Start()
	}

	testEvent := sampleEvent(eventType, time.Now().UTC())
	lg.Info("publishing test event", "event_type", eventType, "event_id", testEvent.EventID())

	// Synchronous so the sample handler has logged before the command exits.
	if err := eventBus.PublishSync(ctx, testEvent); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if dispatcher != nil {
		deadline := time.Now().Add(cfg.Notifier.Timeout + time.Second)
		for dispatcher.Delivered()+dispatcher.Failed() == 0 && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		dispatcher.Shutdown()
		if dispatcher.Failed() > 0 {
			return fmt.Errorf("webhook delivery to %s failed", cfg.Notifier.WebhookURL)
		}
	}

	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")
	publishEventCmd.Flags().StringVar(&eventGate, "gate", "MAIN_GATE", "Gate id for a sample access.decided event")
	publishEventCmd.Flags().StringVar(&eventDecision, "decision", "ALLOW", "Decision for a sample access.decided event")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
