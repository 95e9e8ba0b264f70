package klarna

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opCreateSession = "create_session"
	opUpdateSession = "update_session"
	opPlaceOrder    = "place_order"

	outcomeSuccess        = "success"
	outcomeAPIError       = "api_error"
	outcomeDecodeError    = "decode_error"
	outcomeTransportError = "transport_error"
)

var apiRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "klarna_api_requests_total",
		Help: "Klarna API calls by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

func observeRequest(operation, outcome string) {
	apiRequests.WithLabelValues(operation, outcome).Inc()
}
