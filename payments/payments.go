// Package payments creates checkout PaymentIntents and turns successful
// payments reported by the Stripe webhook into confirmed service requests.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/notify"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrDisabled         = errors.New("payments are not configured")
	ErrProviderNotFound = errors.New("provider not found")
	ErrSelfPayment      = errors.New("providers cannot pay themselves")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrBadSignature     = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// Metadata keys written on checkout and read back by the webhook.
const (
	metaRequesterID   = "requesterId"
	metaProviderID    = "providerId"
	metaCategoryID    = "categoryId"
	metaTitle         = "title"
	metaDescription   = "description"
	metaLocation      = "location"
	metaNotes         = "notes"
	metaScheduledDate = "scheduledDate"
	metaScheduledTime = "scheduledTime"
)

const eventPaymentIntentSucceeded = "payment_intent.succeeded"

type Service struct {
	db            *gorm.DB
	intents       IntentCreator
	webhookSecret string
	currency      string
	log           *zap.Logger
}

// NewService returns a payments service. intents may be nil, in which case
// checkout returns ErrDisabled but webhooks are still processed.
func NewService(db *gorm.DB, intents IntentCreator, webhookSecret, currency string, log *zap.Logger) *Service {
	return &Service{db: db, intents: intents, webhookSecret: webhookSecret, currency: currency, log: log}
}

// Checkout describes the booking a payment will create once it succeeds.
type Checkout struct {
	ProviderID    uint
	CategoryID    *uint
	AmountCents   int64
	Title         string
	Description   string
	Location      string
	Notes         string
	ScheduledDate string
	ScheduledTime string
}

// CreateCheckout creates a PaymentIntent carrying everything the webhook needs
// to materialise the booking.
func (s *Service) CreateCheckout(ctx context.Context, requesterID uint, in Checkout) (*Intent, error) {
	if s.intents == nil {
		return nil, ErrDisabled
	}
	if in.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	var provider models.Provider
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", in.ProviderID, true).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load provider %d: %w", in.ProviderID, err)
	}
	if provider.UserID == requesterID {
		return nil, ErrSelfPayment
	}

	categoryID := in.CategoryID
	if categoryID == nil && provider.CategoryID != 0 {
		categoryID = &provider.CategoryID
	}

	meta := map[string]string{
		metaRequesterID:   strconv.FormatUint(uint64(requesterID), 10),
		metaProviderID:    strconv.FormatUint(uint64(provider.ID), 10),
		metaTitle:         in.Title,
		metaDescription:   in.Description,
		metaLocation:      in.Location,
		metaNotes:         in.Notes,
		metaScheduledDate: in.ScheduledDate,
		metaScheduledTime: in.ScheduledTime,
	}
	if categoryID != nil {
		meta[metaCategoryID] = strconv.FormatUint(uint64(*categoryID), 10)
	}

	intent, err := s.intents.CreatePaymentIntent(ctx, in.AmountCents, s.currency, meta)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return intent, nil
}

// ParseEvent decodes a webhook body, verifying the Stripe-Signature header
// when a webhook secret is configured.
func (s *Service) ParseEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookSecret != "" {
		event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return stripe.Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		return event, nil
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return event, nil
}

// HandleEvent processes one webhook event. Unknown event types are ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	if string(event.Type) != eventPaymentIntentSucceeded {
		s.log.Debug("ignoring stripe event", zap.String("type", string(event.Type)), zap.String("event_id", event.ID))
		return nil
	}
	if event.Data == nil {
		return ErrMalformedEvent
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	created, err := s.HandlePaymentSucceeded(ctx, &pi)
	if err != nil {
		return err
	}
	s.log.Info("payment intent succeeded",
		zap.String("payment_intent", pi.ID),
		zap.Bool("created", created))
	return nil
}

// HandlePaymentSucceeded creates a confirmed service request for pi and
// queues the requester and provider emails in the same transaction. Replays
// of an already processed intent are no-ops and report created=false.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) (bool, error) {
	if pi.ID == "" {
		return false, ErrMalformedEvent
	}
	tx := s.db.WithContext(ctx)

	exists, err := intentProcessed(tx, pi.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	requesterID, err := metaUint(pi.Metadata, metaRequesterID)
	if err != nil {
		return false, err
	}
	providerID, err := metaUint(pi.Metadata, metaProviderID)
	if err != nil {
		return false, err
	}
	var categoryID *uint
	if _, ok := pi.Metadata[metaCategoryID]; ok {
		id, err := metaUint(pi.Metadata, metaCategoryID)
		if err != nil {
			return false, err
		}
		categoryID = &id
	}

	intentID := pi.ID
	amount := pi.Amount
	title := pi.Metadata[metaTitle]
	if title == "" {
		title = "Servicio pagado"
	}
	sr := models.ServiceRequest{
		RequesterID:     requesterID,
		ProviderID:      providerID,
		CategoryID:      categoryID,
		Title:           title,
		Description:     pi.Metadata[metaDescription],
		Location:        pi.Metadata[metaLocation],
		Notes:           pi.Metadata[metaNotes],
		ScheduledDate:   pi.Metadata[metaScheduledDate],
		ScheduledTime:   pi.Metadata[metaScheduledTime],
		Status:          models.StatusConfirmed,
		TotalCents:      &amount,
		PaymentIntentID: &intentID,
	}

	err = tx.Transaction(func(tx *gorm.DB) error {
		var requester models.User
		if err := tx.First(&requester, requesterID).Error; err != nil {
			return fmt.Errorf("load requester %d: %w", requesterID, err)
		}
		var provider models.Provider
		if err := tx.Preload("User").First(&provider, providerID).Error; err != nil {
			return fmt.Errorf("load provider %d: %w", providerID, err)
		}
		if err := tx.Create(&sr).Error; err != nil {
			return fmt.Errorf("create service request: %w", err)
		}
		emails, err := notify.BookingPaidEmails(requester.Email, provider.User.Email, notify.BookingData{
			RequesterName: requester.Name,
			ProviderName:  provider.BusinessName,
			Title:         sr.Title,
			Date:          sr.ScheduledDate,
			Time:          sr.ScheduledTime,
			Location:      sr.Location,
			Amount:        FormatAmount(amount, string(pi.Currency)),
		})
		if err != nil {
			return fmt.Errorf("render booking emails: %w", err)
		}
		return notify.Enqueue(tx, emails...)
	})
	if err != nil {
		// A concurrent delivery of the same event wins on the unique index.
		if again, lerr := intentProcessed(s.db.WithContext(ctx), pi.ID); lerr == nil && again {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func intentProcessed(tx *gorm.DB, intentID string) (bool, error) {
	var count int64
	if err := tx.Model(&models.ServiceRequest{}).
		Where("payment_intent_id = ?", intentID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup payment intent %s: %w", intentID, err)
	}
	return count > 0, nil
}

func metaUint(meta map[string]string, key string) (uint, error) {
	v, err := strconv.ParseUint(meta[key], 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: metadata %s=%q", ErrMalformedEvent, key, meta[key])
	}
	return uint(v), nil
}

// FormatAmount renders cents as "$123.45 MXN".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
