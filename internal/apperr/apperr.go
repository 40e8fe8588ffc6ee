package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDateUnavailable   = errors.New("delivery date unavailable")
	ErrOptionClosed      = errors.New("delivery option closed")
	ErrSlotUnavailable   = errors.New("time slot unavailable")
	ErrInvalidTransition = errors.New("invalid step transition")
	ErrStepIncomplete    = errors.New("step incomplete")
	ErrAmountMismatch    = errors.New("payment amount mismatch")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrUpstream          = errors.New("upstream unavailable")
)

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"

	case errors.Is(err, ErrDateUnavailable):
		return "date_unavailable"

	case errors.Is(err, ErrOptionClosed):
		return "option_closed"

	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"

	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"

	case errors.Is(err, ErrStepIncomplete):
		return "step_incomplete"

	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"

	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"

	case errors.Is(err, ErrUpstream):
		return "upstream_unavailable"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrDateUnavailable),
		errors.Is(err, ErrOptionClosed),
		errors.Is(err, ErrSlotUnavailable),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrPaymentDeclined):
		return http.StatusBadRequest

	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrStepIncomplete):
		return http.StatusConflict

	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// Message is the Korean text shown to customers for an error kind.
func Message(err error) string {
	switch Kind(err) {
	case "":
		return ""
	case "not_found":
		return "요청한 정보를 찾을 수 없습니다."
	case "date_unavailable":
		return "선택할 수 없는 배송 날짜입니다."
	case "option_closed":
		return "죄송합니다. 당일 배송은 14시까지만 가능합니다. 익일 배송이나 일반 배송을 이용해주세요."
	case "slot_unavailable":
		return "선택할 수 없는 시간대입니다."
	case "amount_mismatch", "payment_declined":
		return "결제 승인에 실패했습니다."
	case "invalid_input", "invalid_transition", "step_incomplete":
		return "입력 정보를 확인해 주세요."
	default:
		return "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	}
}
