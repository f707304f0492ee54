package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/bookings", "201", 0.05)
	RecordHTTPRequest("POST", "/bookings", "201", 0.07)
	RecordHTTPRequest("POST", "/bookings", "409", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/bookings", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/bookings", "409")))
}

func TestRecordBookingRejection(t *testing.T) {
	BookingRejectionsTotal.Reset()

	RecordBookingRejection("overlap")
	RecordBookingRejection("overlap")
	RecordBookingRejection("capacity")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingRejectionsTotal.WithLabelValues("overlap")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingRejectionsTotal.WithLabelValues("capacity")))
}

func TestRecordMembershipTransition(t *testing.T) {
	MembershipTransitionsTotal.Reset()

	RecordMembershipTransition("assign")
	RecordMembershipTransition("pause")
	RecordMembershipTransition("pause")

	assert.Equal(t, float64(1), testutil.ToFloat64(MembershipTransitionsTotal.WithLabelValues("assign")))
	assert.Equal(t, float64(2), testutil.ToFloat64(MembershipTransitionsTotal.WithLabelValues("pause")))
}

func TestRecordShiftExchange(t *testing.T) {
	ShiftExchangesTotal.Reset()

	RecordShiftExchange("accepted")
	RecordShiftExchange("rejected")

	assert.Equal(t, float64(1), testutil.ToFloat64(ShiftExchangesTotal.WithLabelValues("accepted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ShiftExchangesTotal.WithLabelValues("rejected")))
}
