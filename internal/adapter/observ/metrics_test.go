package observ

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	domain "github.com/BotCoder254/projects254/internal/entity"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.PaymentInitiated("accepted")
	r.PaymentInitiated("accepted")
	r.PaymentInitiated("rejected")
	r.PaymentQueried(domain.PaymentPending)
	r.OrderCreated()
	r.MaterializationFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.initiated.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.queried.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.materializeErr))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
}
