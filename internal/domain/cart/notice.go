package cart

import "context"

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeAdded             NoticeKind = "added"
	NoticeUpdated           NoticeKind = "updated"
	NoticeRemoved           NoticeKind = "removed"
	NoticeCleared           NoticeKind = "cleared"
	NoticeOutOfStock        NoticeKind = "out_of_stock"
	NoticeInsufficientStock NoticeKind = "insufficient_stock"
	NoticeStockUnavailable  NoticeKind = "stock_unavailable"
	NoticeQuantityLimit     NoticeKind = "quantity_limit"
	NoticeCouponApplied     NoticeKind = "coupon_applied"
	NoticeCouponRemoved     NoticeKind = "coupon_removed"
)

// Level is the presentation severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a message for the user about a cart change or a rejected change.
type Notice struct {
	Kind    NoticeKind
	Level   Level
	ItemID  string
	Message string
}

// Notifier is the side channel for notices. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
