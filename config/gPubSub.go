package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// ReminderEvent is published (best effort) after each reminder email dispatch
// so downstream consumers (analytics, CRM sync) can react without polling.
type ReminderEvent struct {
	AccountId         string    `json:"account_id"`
	InvoiceId         string    `json:"invoice_id"`
	InvoiceExternalId string    `json:"invoice_external_id"`
	RuleId            string    `json:"rule_id"`
	DaysOverdue       int       `json:"days_overdue"`
	SentAt            time.Time `json:"sent_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}
	pubsubClient = c
	return pubsubClient, nil
}

// PublishReminderEvent publishes a reminder-dispatched event to the topic
// named by PUBSUB_REMINDER_TOPIC. Unset topic means publishing is disabled.
// Failures are logged and swallowed: event fan-out must never fail a reminder
// that was already sent.
func PublishReminderEvent(ctx context.Context, event ReminderEvent) {
	topicName := os.Getenv("PUBSUB_REMINDER_TOPIC")
	if topicName == "" {
		return
	}

	client, err := getPubSubClient(ctx)
	if err != nil {
		log.Printf("pubsub client unavailable, dropping reminder event: %v", err)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to encode reminder event: %v", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result := client.Topic(topicName).Publish(publishCtx, &pubsub.Message{Data: data})
	if _, err := result.Get(publishCtx); err != nil {
		log.Printf("failed to publish reminder event for invoice %s: %v", event.InvoiceId, err)
	}
}
