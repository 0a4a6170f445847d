package usecases

import (
	"context"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/dto"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
)

// FlowRepository is the persistence collaborator of the editor
type FlowRepository = flow.Repository

// Notifier shows save outcomes to the user. Notify must not block for long;
// it is called after the editor lock is released.
type Notifier interface {
	Notify(ctx context.Context, n dto.Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n dto.Notification)

func (f NotifierFunc) Notify(ctx context.Context, n dto.Notification) { f(ctx, n) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, dto.Notification) {}
