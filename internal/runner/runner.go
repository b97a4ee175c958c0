package runner

import (
	"context"
	"strings"

	"tv_relay/internal/models"
	"tv_relay/internal/modules/config"
	health "tv_relay/internal/modules/health/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Exchange — всё, что раннеру нужно от биржи.
type Exchange interface {
	Equity(ctx context.Context) (float64, error)
	Positions(ctx context.Context, instID string) ([]models.Position, error)
	Instrument(ctx context.Context, instID string) (models.Instrument, error)
	ClosePosition(ctx context.Context, instID string, pos models.Position) (models.OrderResult, error)
	OpenPosition(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
}

type Notifier interface {
	SendF(ctx context.Context, format string, args ...any)
}

// Runner разворачивает позицию по сигналу: close -> open.
// Общего изменяемого состояния между запросами нет.
type Runner struct {
	ex     Exchange
	n      Notifier
	state  *health.State
	log    *zap.Logger
	policy string

	newID func() string
}

func New(cfg *config.Config, ex Exchange, n Notifier, state *health.State, log *zap.Logger) *Runner {
	policy := cfg.Trading.ReversePolicy
	if policy == "" {
		policy = config.ReverseCloseAny
	}
	return &Runner{
		ex:     ex,
		n:      n,
		state:  state,
		log:    log.Named("runner"),
		policy: policy,
		newID:  newClientOrderID,
	}
}

// clOrdId у OKX: до 32 букв/цифр
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (r *Runner) exchangeOK(ok bool) {
	if r.state != nil {
		r.state.SetExchangeOK(ok)
	}
}
