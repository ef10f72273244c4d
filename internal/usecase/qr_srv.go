package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/storage"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// QRPayload is the exact JSON a ticket's QR image encodes.
type QRPayload struct {
	TicketID     uuid.UUID `json:"ticketId"`
	Code         string    `json:"code"`
	EventID      uuid.UUID `json:"event"`
	UserID       uuid.UUID `json:"userId"`
	PurchaseDate string    `json:"purchaseDate"`
	Status       string    `json:"status"`
	Signature    string    `json:"sig,omitempty"`
}

type QRResult struct {
	Payload string
	URL     string
}

type QRIssuer interface {
	// Issue renders and stores the ticket's QR image and records its locator on
	// the ticket. Calling it again refreshes the locator.
	Issue(ctx context.Context, ticket *entity.Ticket) (*QRResult, error)
	// Parse decodes raw scanner input and checks its signature.
	Parse(raw string) (*QRPayload, error)
}

type qrIssuer struct {
	tickets    repository.TicketRepository
	store      storage.Store
	size       int
	signingKey []byte
	now        func() time.Time
	log        *zap.Logger
}

func NewQRIssuer(tickets repository.TicketRepository, store storage.Store, size int, signingKey string, log *zap.Logger) QRIssuer {
	if size <= 0 {
		size = 300
	}
	return &qrIssuer{
		tickets:    tickets,
		store:      store,
		size:       size,
		signingKey: []byte(signingKey),
		now:        time.Now,
		log:        log.With(zap.String("service", "qr")),
	}
}

func (q *qrIssuer) Issue(ctx context.Context, ticket *entity.Ticket) (*QRResult, error) {
	payload := QRPayload{
		TicketID:     ticket.ID,
		Code:         ticket.Code,
		EventID:      ticket.EventID,
		UserID:       ticket.UserID,
		PurchaseDate: ticket.PurchasedAt.UTC().Format(time.RFC3339),
		Status:       ticket.Status.Display(),
	}
	payload.Signature = q.sign(payload)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload %s: %w", ticket.Code, err)
	}

	png, err := qrcode.Encode(string(raw), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("render qr %s: %w", ticket.Code, err)
	}

	// the timestamp keeps a re-issue from racing a reader of the old file
	name := fmt.Sprintf("ticket-%s-%d.png", ticket.Code, q.now().UnixMilli())
	url, err := q.store.Put(ctx, name, png)
	if err != nil {
		return nil, fmt.Errorf("store qr %s: %w", ticket.Code, err)
	}

	if err := q.tickets.UpdateQR(ctx, ticket.ID, url, string(raw)); err != nil {
		return nil, err
	}

	ticket.QRCodeURL = &url
	payloadStr := string(raw)
	ticket.QRPayload = &payloadStr

	q.log.Debug("QR issued", zap.String("code", ticket.Code), zap.String("url", url))
	return &QRResult{Payload: payloadStr, URL: url}, nil
}

func (q *qrIssuer) Parse(raw string) (*QRPayload, error) {
	var payload QRPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrInvalidQR.Wrap(err)
	}
	if payload.TicketID == uuid.Nil || payload.Code == "" {
		return nil, ErrInvalidQR
	}

	if len(q.signingKey) > 0 {
		want := q.sign(payload)
		if !hmac.Equal([]byte(want), []byte(payload.Signature)) {
			return nil, ErrInvalidQR.With("reason", "signature mismatch")
		}
	}
	return &payload, nil
}

// sign returns the hex HMAC-SHA256 over the identity fields, or "" when no
// key is configured. Status is left out so redemption does not void a
// printed code.
func (q *qrIssuer) sign(p QRPayload) string {
	if len(q.signingKey) == 0 {
		return ""
	}
	mac := hmac.New(sha256.New, q.signingKey)
	fmt.Fprintf(mac, "%s|%s|%s|%s|%s", p.TicketID, p.Code, p.EventID, p.UserID, p.PurchaseDate)
	return hex.EncodeToString(mac.Sum(nil))
}
