// Package notifier delivers alert text to chat webhooks.
package notifier

import (
	"context"
	"strings"
)

// Result is the outcome of a delivery. Failures never escalate past it.
type Result struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Notifier sends plain text.
type Notifier interface {
	SendText(ctx context.Context, msg string) Result
}

// Multi fans a message out to every notifier. It is OK if any sink is.
type Multi []Notifier

func (m Multi) SendText(ctx context.Context, msg string) Result {
	if len(m) == 0 {
		return Result{Detail: "no notifier configured"}
	}
	var (
		ok      bool
		details []string
	)
	for _, n := range m {
		r := n.SendText(ctx, msg)
		ok = ok || r.OK
		if r.Detail != "" {
			details = append(details, r.Detail)
		}
	}
	return Result{OK: ok, Detail: strings.Join(details, "; ")}
}
