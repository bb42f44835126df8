package receipt

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Receipt is a fiscal receipt resolved and stored by the backend.
type Receipt struct {
	// ID is the backend identifier of the receipt.
	ID string `json:"id"`
	// QRCodeURL is the fiscal portal URL the receipt was created from.
	QRCodeURL string `json:"qrCodeUrl"`
	// StoreName is the merchant name reported by the fiscal portal.
	StoreName string `json:"storeName,omitempty"`
	// TotalAmount is the receipt total in the receipt currency.
	TotalAmount decimal.Decimal `json:"totalAmount"`
	// IssuedAt is when the merchant issued the receipt.
	IssuedAt time.Time `json:"issuedAt"`
	// GroupID is the shared expense group, if any.
	GroupID string `json:"groupId,omitempty"`
	// PaidByID is the group member who paid, if any.
	PaidByID string `json:"paidById,omitempty"`
	// CreatedAt is when the backend stored the receipt.
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of the receipt.
func (r *Receipt) Clone() *Receipt {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// CreateRequest is the payload of the receipt-creation operation.
type CreateRequest struct {
	// QRCodeURL is a validated https fiscal portal URL.
	QRCodeURL string `json:"qrCodeUrl"`
	// GroupID optionally assigns the receipt to a shared group.
	GroupID string `json:"groupId,omitempty"`
	// PaidByID optionally names the member who paid.
	PaidByID string `json:"paidById,omitempty"`
	// IdempotencyKey is shared by every attempt of one submission.
	IdempotencyKey uuid.UUID `json:"-"`
}

// NewCreateRequest builds a request with a fresh idempotency key.
func NewCreateRequest(qrCodeURL, groupID, paidByID string) CreateRequest {
	return CreateRequest{
		QRCodeURL:      qrCodeURL,
		GroupID:        groupID,
		PaidByID:       paidByID,
		IdempotencyKey: uuid.New(),
	}
}
