package checkout

import "github.com/bagisva/vpos-gateway/internal/domain"

// ShareholderInput is one named share of a sacrifice donation as submitted
// by the client. Shareholders may be omitted entirely and collected after
// payment.
type ShareholderInput struct {
	ShareNumber int    `json:"share_number"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Note        string `json:"note"`
}

// CartItem is one donation line of the submitted cart. Amounts are integer
// minor currency units (kurus).
type CartItem struct {
	ProjectID       int64              `json:"project_id"`
	AmountKurus     int64              `json:"amount_kurus"`
	IsSacrifice     bool               `json:"is_sacrifice"`
	ShareCount      int                `json:"share_count"`
	SharePriceKurus int64              `json:"share_price_kurus"`
	Shareholders    []ShareholderInput `json:"shareholders"`
	Message         string             `json:"message"`
	IsAnonymous     bool               `json:"is_anonymous"`
}

// CardInput carries card data through the checkout call. It is never
// persisted or logged; it exists for routing and MAC computation only.
type CardInput struct {
	Number string `json:"number"`
	CVV    string `json:"cvv"`
	Expiry string `json:"expiry"` // YYMM
	Holder string `json:"holder"`
}

// CheckoutCommand is one cart submission.
type CheckoutCommand struct {
	DonorID     string     `json:"donor_id"`
	Items       []CartItem `json:"items"`
	Card        CardInput  `json:"card"`
	IsRecurring bool       `json:"is_recurring"`
}

func (i CartItem) toLine(lineID string) *domain.DonationLine {
	var shareholders []domain.Shareholder
	if i.Shareholders != nil {
		shareholders = make([]domain.Shareholder, 0, len(i.Shareholders))
		for _, sh := range i.Shareholders {
			shareholders = append(shareholders, domain.Shareholder{
				ShareNumber: sh.ShareNumber,
				FullName:    sh.FullName,
				PhoneNumber: sh.PhoneNumber,
				Address:     sh.Address,
				Note:        sh.Note,
			})
		}
	}

	return &domain.DonationLine{
		ID:              lineID,
		ProjectID:       i.ProjectID,
		AmountKurus:     i.AmountKurus,
		IsSacrifice:     i.IsSacrifice,
		ShareCount:      i.ShareCount,
		SharePriceKurus: i.SharePriceKurus,
		Shareholders:    shareholders,
		Message:         i.Message,
		IsAnonymous:     i.IsAnonymous,
	}
}
