package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keymint/licensing/internal/domain"
	pkgkafka "github.com/keymint/licensing/pkg/kafka"
)

// Kafka topic constants for licensing domain events.
const (
	TopicBrandRegistered         = "licensing.brand.registered"
	TopicProductCreated          = "licensing.product.created"
	TopicLicenseKeyCreated       = "licensing.license_key.created"
	TopicLicenseKeyStatusChanged = "licensing.license_key.status_changed"
	TopicLicenseCreated          = "licensing.license.created"
	TopicLicenseActivated        = "licensing.license.activated"
	TopicLicenseStatusChanged    = "licensing.license.status_changed"
)

// Aggregate type constants.
const (
	AggregateTypeBrand      = "brand"
	AggregateTypeProduct    = "product"
	AggregateTypeLicenseKey = "license_key"
	AggregateTypeLicense    = "license"
)

// Source identifier for events originating from this service.
const SourceLicensingService = "licensing-service"

// BrandRegisteredData is the payload for a brand.registered event. API keys
// are deliberately absent; they never leave the registration response.
type BrandRegisteredData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

// ProductCreatedData is the payload for a product.created event.
type ProductCreatedData struct {
	ID      string `json:"id"`
	BrandID string `json:"brand_id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
}

// LicenseKeyData is the payload for license_key.created and
// license_key.status_changed events.
type LicenseKeyData struct {
	ID            string `json:"id"`
	BrandID       string `json:"brand_id"`
	CustomerEmail string `json:"customer_email"`
	Key           string `json:"key"`
	Status        string `json:"status"`
}

// LicenseData is the payload for license.created, license.activated, and
// license.status_changed events.
type LicenseData struct {
	ID           string `json:"id"`
	LicenseKeyID string `json:"license_key_id"`
	ProductID    string `json:"product_id"`
	Status       string `json:"status"`
	StartsAt     string `json:"starts_at"`
	ExpiresAt    string `json:"expires_at"`
	ActivatedAt  string `json:"activated_at,omitempty"`
}

// Producer publishes licensing domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the licensing service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceLicensingService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}

// PublishBrandRegistered publishes a brand.registered event.
func (p *Producer) PublishBrandRegistered(ctx context.Context, brand *domain.Brand) error {
	return p.publish(ctx, TopicBrandRegistered, brand.ID, AggregateTypeBrand, BrandRegisteredData{
		ID:     brand.ID,
		Name:   brand.Name,
		Slug:   brand.Slug,
		Status: brand.Status,
	})
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, ProductCreatedData{
		ID:      product.ID,
		BrandID: product.BrandID,
		Name:    product.Name,
		Slug:    product.Slug,
		Status:  product.Status,
	})
}

// PublishLicenseKeyCreated publishes a license_key.created event.
func (p *Producer) PublishLicenseKeyCreated(ctx context.Context, key *domain.LicenseKey) error {
	return p.publish(ctx, TopicLicenseKeyCreated, key.ID, AggregateTypeLicenseKey, licenseKeyData(key))
}

// PublishLicenseKeyStatusChanged publishes a license_key.status_changed event.
func (p *Producer) PublishLicenseKeyStatusChanged(ctx context.Context, key *domain.LicenseKey) error {
	return p.publish(ctx, TopicLicenseKeyStatusChanged, key.ID, AggregateTypeLicenseKey, licenseKeyData(key))
}

// PublishLicenseCreated publishes a license.created event.
func (p *Producer) PublishLicenseCreated(ctx context.Context, license *domain.License) error {
	return p.publish(ctx, TopicLicenseCreated, license.ID, AggregateTypeLicense, licenseData(license))
}

// PublishLicenseActivated publishes a license.activated event.
func (p *Producer) PublishLicenseActivated(ctx context.Context, license *domain.License) error {
	return p.publish(ctx, TopicLicenseActivated, license.ID, AggregateTypeLicense, licenseData(license))
}

// PublishLicenseStatusChanged publishes a license.status_changed event.
func (p *Producer) PublishLicenseStatusChanged(ctx context.Context, license *domain.License) error {
	return p.publish(ctx, TopicLicenseStatusChanged, license.ID, AggregateTypeLicense, licenseData(license))
}

func licenseKeyData(key *domain.LicenseKey) LicenseKeyData {
	return LicenseKeyData{
		ID:            key.ID,
		BrandID:       key.BrandID,
		CustomerEmail: key.CustomerEmail,
		Key:           key.Key,
		Status:        key.Status,
	}
}

func licenseData(license *domain.License) LicenseData {
	data := LicenseData{
		ID:           license.ID,
		LicenseKeyID: license.LicenseKeyID,
		ProductID:    license.ProductID,
		Status:       license.Status,
		StartsAt:     license.StartsAt.Format("2006-01-02T15:04:05Z07:00"),
		ExpiresAt:    license.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if license.ActivatedAt != nil {
		data.ActivatedAt = license.ActivatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return data
}
