// Package notify tells the operations team about order events.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bigmove/backend/internal/models"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type OrderNotifier struct {
	mailer Mailer
	from   string
	to     string
}

func NewOrderNotifier(mailer Mailer, from, to string) *OrderNotifier {
	return &OrderNotifier{mailer: mailer, from: from, to: to}
}

func (n *OrderNotifier) Notify(ctx context.Context, ev models.OrderEvent) error {
	subject, body := Render(ev)
	if err := n.mailer.Send(ctx, n.from, n.to, subject, body); err != nil {
		return fmt.Errorf("notify %s %s: %w", ev.Type, ev.OrderID, err)
	}
	return nil
}

// Render builds the subject and plain text body of an event mail.
func Render(ev models.OrderEvent) (string, string) {
	var title string
	switch ev.Type {
	case models.EventOrderCreated:
		title = "신규 주문 접수"
	case models.EventOrderPaid:
		title = "결제 완료"
	case models.EventOrderCancelled:
		title = "주문 취소"
	default:
		title = string(ev.Type)
	}
	subject := fmt.Sprintf("[BigMove] %s - %s", title, ev.OrderID)

	var b strings.Builder
	fmt.Fprintf(&b, "주문번호: %s\n", ev.OrderID)
	fmt.Fprintf(&b, "상태: %s\n", ev.Status)
	fmt.Fprintf(&b, "결제금액: %s원\n", FormatKRW(ev.TotalPrice))
	fmt.Fprintf(&b, "배송일: %s (상차 %s / 하차 %s)\n", ev.Date, ev.LoadingTime, ev.UnloadingTime)
	fmt.Fprintf(&b, "출발지: %s\n", ev.FromAddress)
	fmt.Fprintf(&b, "도착지: %s\n", ev.ToAddress)
	return subject, b.String()
}

// FormatKRW groups digits by thousands, e.g. 1234500 -> "1,234,500".
func FormatKRW(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
