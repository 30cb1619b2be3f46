package notify

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	breakerMaxFailures = 5
	breakerInterval    = time.Minute
	breakerTimeout     = 30 * time.Second
)

// newBreaker создаёт автомат, размыкающийся после серии неудачных вызовов внешнего провайдера.
// isSuccessful позволяет не считать отказом ошибки, вызванные самим запросом.
func newBreaker(name string, logger *zap.Logger, isSuccessful func(error) bool) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	}
	return gobreaker.NewCircuitBreaker(st)
}
