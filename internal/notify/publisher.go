package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Stanux/walking-safely-sub002/internal/lib/alerts"
	"github.com/Stanux/walking-safely-sub002/internal/lib/routing"
)

// Exchange all navigation events are published to
const exchangeName = "navigation_topic"

type rmqChanneler interface {
	Channel() (*amqp.Channel, error)
}

// NavigationPublisher fans navigation events out to the notification layer
// (push, voice, haptics). This core only produces events; rendering happens
// downstream.
type NavigationPublisher struct {
	rmq rmqChanneler
}

// NewNavigationPublisher creates a publisher over an open AMQP connection
func NewNavigationPublisher(rmq rmqChanneler) *NavigationPublisher {
	return &NavigationPublisher{rmq: rmq}
}

// Connect dials RabbitMQ and declares the navigation exchange
func Connect(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return conn, nil
}

// PublishAlert publishes a proximity alert for a session
func (p *NavigationPublisher) PublishAlert(ctx context.Context, sessionID string, alert alerts.Alert) error {
	msg := map[string]any{
		"session_id":      sessionID,
		"risk_region_id":  alert.RiskRegionID,
		"crime_type":      alert.CrimeType,
		"distance_meters": alert.DistanceMeters,
		"triggered_at":    alert.TriggeredAt.Format(time.RFC3339),
	}
	routingKey := fmt.Sprintf("navigation.alert.%s", sessionID)

	if err := p.publish(ctx, routingKey, msg); err != nil {
		return err
	}

	log.Printf("Published proximity alert for session %s (region %s)", sessionID, alert.RiskRegionID)
	return nil
}

// PublishRecalculated announces that a session's route was replaced after a
// deviation, so the presentation layer can inform the traveler
func (p *NavigationPublisher) PublishRecalculated(ctx context.Context, sessionID string, route *routing.Route) error {
	msg := map[string]any{
		"session_id": sessionID,
		"route_id":   route.ID,
		"preference": string(route.Preference),
		"distance":   route.DistanceMeters,
		"duration":   route.DurationSeconds,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	routingKey := fmt.Sprintf("navigation.recalculated.%s", sessionID)

	if err := p.publish(ctx, routingKey, msg); err != nil {
		return err
	}

	log.Printf("Published recalculation event for session %s (route %s)", sessionID, route.ID)
	return nil
}

// PublishRecalculationFailed tells the presentation layer that navigation is
// continuing on the last-known-good route
func (p *NavigationPublisher) PublishRecalculationFailed(ctx context.Context, sessionID string) error {
	msg := map[string]any{
		"session_id": sessionID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	return p.publish(ctx, fmt.Sprintf("navigation.recalculation_failed.%s", sessionID), msg)
}

func (p *NavigationPublisher) publish(ctx context.Context, routingKey string, msg map[string]any) error {
	ch, err := p.rmq.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := ch.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}
