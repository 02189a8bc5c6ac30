package apiv1

import (
	"time"

	"messmate/internal/domain/model"
	"messmate/internal/usecase"
)

// ---- requests ----

type checkoutRequest struct {
	MessID string `json:"mess_id" validate:"required"`
	// remaining payments settle the member's current plan; plan_id is ignored there
	PlanID      string `json:"plan_id" validate:"required_unless=PaymentType remaining,omitempty,oneof=full_month half_month"`
	PaymentType string `json:"payment_type" validate:"required,oneof=full advance remaining"`
	Amount      int64  `json:"amount" validate:"gte=0"`
}

type submitRequest struct {
	MessID   string `json:"mess_id" validate:"required"`
	PlanID   string `json:"plan_id" validate:"required,oneof=full_month half_month"`
	JoinDate string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	Message  string `json:"message" validate:"max=1000"`
}

type processRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes" validate:"max=1000"`
}

type enrollRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	PlanID     string `json:"plan_id" validate:"required,oneof=full_month half_month"`
	JoinDate   string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
	TotalDue   *int64 `json:"total_due" validate:"omitempty,gte=0"`
	CashAmount int64  `json:"cash_amount" validate:"gte=0"`
}

type editRequest struct {
	PlanID     *string `json:"plan_id" validate:"omitempty,oneof=full_month half_month"`
	JoinDate   *string `json:"joining_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate *string `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	TotalDue   *int64  `json:"total_due" validate:"omitempty,gte=0"`
	AmountPaid *int64  `json:"amount_paid" validate:"omitempty,gte=0"`
	IsActive   *bool   `json:"is_active"`
}

type menuItemRequest struct {
	Date  string   `json:"date" validate:"required,datetime=2006-01-02"`
	Meal  string   `json:"meal" validate:"required,oneof=breakfast lunch dinner"`
	Items []string `json:"items" validate:"required,min=1,max=30,dive,required,max=120"`
}

type publishMenuRequest struct {
	Entries []menuItemRequest `json:"entries" validate:"required,min=1,max=42,dive"`
}

// ---- responses ----

type planDTO struct {
	ID       model.PlanID `json:"id"`
	Name     string       `json:"name"`
	Price    int64        `json:"price"`
	TermDays int          `json:"term_days"`
}

type messDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type memberDTO struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"user_id"`
	MessID           string                 `json:"mess_id"`
	PlanID           model.PlanID           `json:"plan_id"`
	JoiningDate      string                 `json:"joining_date"`
	ExpiryDate       *string                `json:"expiry_date"`
	TotalDue         int64                  `json:"total_due"`
	AmountPaid       int64                  `json:"amount_paid"`
	Remaining        int64                  `json:"remaining"`
	IsActive         bool                   `json:"is_active"`
	PaymentStatus    model.PaymentStatus    `json:"payment_status"`
	MembershipStatus model.MembershipStatus `json:"membership_status"`
}

type paymentDTO struct {
	ID                   string              `json:"id"`
	Amount               int64               `json:"amount"`
	Status               model.PendingStatus `json:"status"`
	IsAdvance            bool                `json:"is_advance"`
	Source               model.PaymentSource `json:"source"`
	GatewayTransactionID *string             `json:"gateway_transaction_id,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

type requestDTO struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	MessID      string              `json:"mess_id"`
	PlanID      model.PlanID        `json:"plan_id"`
	JoinDate    string              `json:"join_date"`
	Message     string              `json:"message,omitempty"`
	Status      model.RequestStatus `json:"status"`
	AdminNotes  string              `json:"admin_notes,omitempty"`
	ProcessedBy *string             `json:"processed_by,omitempty"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

type menuDTO struct {
	Date  string     `json:"date"`
	Meal  model.Meal `json:"meal"`
	Items []string   `json:"items"`
}

type transactionDTO struct {
	MerchantTransactionID string              `json:"merchant_transaction_id"`
	Status                model.PendingStatus `json:"status"`
	Amount                int64               `json:"amount"`
	AlreadyResolved       bool                `json:"already_resolved"`
}

func toPlans(ps []model.Plan) []planDTO {
	out := make([]planDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, planDTO{ID: p.ID, Name: p.Name, Price: p.Price, TermDays: p.TermDays})
	}
	return out
}

func toMess(m *model.Mess) messDTO {
	return messDTO{ID: m.ID, Name: m.Name, Address: m.Address, Latitude: m.Latitude, Longitude: m.Longitude}
}

func toMember(m *model.SubscriptionMember) memberDTO {
	d := memberDTO{
		ID:               m.ID,
		UserID:           m.UserID,
		MessID:           m.MessID,
		PlanID:           m.PlanID,
		JoiningDate:      m.JoiningDate.Format(dateLayout),
		TotalDue:         m.TotalDue,
		AmountPaid:       m.AmountPaid,
		Remaining:        m.Remaining(),
		IsActive:         m.IsActive,
		PaymentStatus:    m.PaymentStatus,
		MembershipStatus: m.MembershipStatus,
	}
	if m.ExpiryDate != nil {
		s := m.ExpiryDate.Format(dateLayout)
		d.ExpiryDate = &s
	}
	return d
}

func toMembers(ms []*model.SubscriptionMember) []memberDTO {
	out := make([]memberDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	return out
}

func toPayments(ps []*model.Payment) []paymentDTO {
	out := make([]paymentDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, paymentDTO{
			ID:                   p.ID,
			Amount:               p.Amount,
			Status:               p.Status,
			IsAdvance:            p.IsAdvance,
			Source:               p.Source,
			GatewayTransactionID: p.GatewayTransactionID,
			CreatedAt:            p.CreatedAt,
		})
	}
	return out
}

func toRequest(r *model.SubscriptionRequest) requestDTO {
	return requestDTO{
		ID:          r.ID,
		UserID:      r.UserID,
		MessID:      r.MessID,
		PlanID:      r.PlanID,
		JoinDate:    r.JoinDate.Format(dateLayout),
		Message:     r.Message,
		Status:      r.Status,
		AdminNotes:  r.AdminNotes,
		ProcessedBy: r.ProcessedBy,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
	}
}

func toRequests(rs []*model.SubscriptionRequest) []requestDTO {
	out := make([]requestDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRequest(r))
	}
	return out
}

func toMenu(es []*model.MenuEntry) []menuDTO {
	out := make([]menuDTO, 0, len(es))
	for _, e := range es {
		out = append(out, menuDTO{Date: e.Date.Format(dateLayout), Meal: e.Meal, Items: e.Items})
	}
	return out
}

func toTransaction(res *usecase.ResolveResult) transactionDTO {
	return transactionDTO{
		MerchantTransactionID: res.MerchantTransactionID,
		Status:                res.Status,
		Amount:                res.Amount,
		AlreadyResolved:       res.AlreadyResolved,
	}
}
