package helpers

import (
	"time"

	"weather-observer/src/interfaces"
	"weather-observer/src/models"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

// WaitForHistories polls the history client until its active request finishes
// and returns the result. When the deadline passes first a TimeoutError is
// returned and the request is left active.
func WaitForHistories(client interfaces.IHistoryClient, clock clockwork.Clock, timeout, interval time.Duration) (models.MDailyHistories, error) {
	deadline := clock.Now().Add(timeout)
	for {
		done, err := client.Poll()
		if err != nil {
			return models.MDailyHistories{}, err
		}
		if done {
			return client.Get()
		}
		if !clock.Now().Add(interval).Before(deadline) {
			return models.MDailyHistories{}, NewTimeoutError("history request did not finish within %v", timeout)
		}
		clock.Sleep(interval)
	}
}
