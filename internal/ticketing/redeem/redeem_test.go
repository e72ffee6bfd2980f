package redeem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

type fakeHistory struct {
	used     int64
	lastPass *time.Time
	elapsed  int64
}

func (h *fakeHistory) UsedCount(ctx context.Context, ticketID string) (int64, error) {
	return h.used, nil
}

func (h *fakeHistory) LastPassAt(ctx context.Context, ticketID string) (*time.Time, error) {
	return h.lastPass, nil
}

func (h *fakeHistory) ElapsedMinutes(ctx context.Context, ticketID string, now time.Time) (int64, error) {
	return h.elapsed, nil
}

var baseTime = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func multiTicket(quota int64) ticketing.Ticket {
	return ticketing.Ticket{
		ID:             "TK-0001",
		Type:           ticketing.TicketTypeMulti,
		QuotaOrMinutes: quota,
		ValidFrom:      baseTime.Add(-time.Hour),
		ValidTo:        baseTime.Add(24 * time.Hour),
		Status:         ticketing.TicketStatusActive,
	}
}

func scanAt(at time.Time) Scan {
	return Scan{DeviceID: "GATE-01", At: at}
}

func TestInvalidSignatureWinsOverEverything(t *testing.T) {
	// Expired, exhausted and wrong device all hold, yet the broken
	// signature decides.
	ticket := multiTicket(1)
	ticket.ValidTo = baseTime.Add(-time.Hour)
	ticket.BoundDeviceIDs = []string{"GATE-99"}
	h := &fakeHistory{used: 1}

	out, err := Adjudicate(context.Background(), ticket, false, scanAt(baseTime), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ResultFail, out.Result)
	assert.Equal(t, ticketing.ReasonInvalidSignature, out.Reason)
}

func TestNotStartedBeforeValidFrom(t *testing.T) {
	ticket := multiTicket(5)
	ticket.ValidFrom = baseTime.Add(time.Hour)

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), &fakeHistory{}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ticketing.ReasonNotStarted, out.Reason)
}

func TestExpiredAfterValidToRegardlessOfRemainingQuota(t *testing.T) {
	ticket := multiTicket(5)
	ticket.ValidTo = baseTime.Add(-time.Minute)

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), &fakeHistory{used: 0}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ticketing.ReasonExpired, out.Reason)
}

func TestWrongDevice(t *testing.T) {
	ticket := multiTicket(5)
	ticket.BoundDeviceIDs = []string{"GATE-99"}

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), &fakeHistory{}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ticketing.ReasonWrongDevice, out.Reason)
}

func TestSingleTicketPassThenDuplicateUse(t *testing.T) {
	ticket := multiTicket(1)
	ticket.Type = ticketing.TicketTypeSingle

	first, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), &fakeHistory{}, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ResultPass, first.Result)
	assert.Equal(t, int64(0), first.Remaining)

	// One minute later the pass has been committed but is still inside
	// the replay window.
	passAt := baseTime
	h := &fakeHistory{used: 1, lastPass: &passAt}

	second, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime.Add(time.Minute)), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ResultFail, second.Result)
	assert.Equal(t, ticketing.ReasonDuplicateUse, second.Reason)
}

func TestSingleTicketExhaustedOutsideReplayWindow(t *testing.T) {
	ticket := multiTicket(1)
	ticket.Type = ticketing.TicketTypeSingle

	passAt := baseTime
	h := &fakeHistory{used: 1, lastPass: &passAt}

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime.Add(10*time.Minute)), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ticketing.ReasonQuotaExhausted, out.Reason)
}

func TestMultiTicketCountsDownThenExhausts(t *testing.T) {
	ticket := multiTicket(5)

	expectedRemaining := []int64{4, 3, 2, 1, 0}
	at := baseTime
	h := &fakeHistory{}

	for i, want := range expectedRemaining {
		out, err := Adjudicate(context.Background(), ticket, true, scanAt(at), h, Policy{})
		require.NoError(t, err)
		require.Equal(t, ResultPass, out.Result, "scan %d", i+1)
		assert.Equal(t, want, out.Remaining, "scan %d", i+1)

		passAt := at
		h.used++
		h.lastPass = &passAt
		at = at.Add(6 * time.Minute)
	}

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(at), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ResultFail, out.Result)
	assert.Equal(t, ticketing.ReasonQuotaExhausted, out.Reason)
}

func TestTimepassElapsedExhaustion(t *testing.T) {
	ticket := multiTicket(120)
	ticket.Type = ticketing.TicketTypeTimepass

	h := &fakeHistory{elapsed: 45}
	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ResultPass, out.Result)
	assert.Equal(t, int64(75), out.Remaining)

	h = &fakeHistory{elapsed: 120}
	out, err = Adjudicate(context.Background(), ticket, true, scanAt(baseTime), h, Policy{})
	require.NoError(t, err)
	assert.Equal(t, ticketing.ReasonQuotaExhausted, out.Reason)
}

func TestCustomReplayWindow(t *testing.T) {
	ticket := multiTicket(5)

	passAt := baseTime
	h := &fakeHistory{used: 1, lastPass: &passAt}
	p := Policy{ReplayWindow: 30 * time.Second}

	out, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime.Add(time.Minute)), h, p)
	require.NoError(t, err)
	assert.Equal(t, ResultPass, out.Result)
	assert.Equal(t, int64(3), out.Remaining)
}

func TestAdvisoryAndAuthoritativeShareRules(t *testing.T) {
	// Two History implementations with the same visible state must
	// produce the same outcome; the tiers differ only in what they can
	// see.
	ticket := multiTicket(3)

	authoritative := &fakeHistory{used: 2}
	advisory := &fakeHistory{used: 2}

	a, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), authoritative, Policy{})
	require.NoError(t, err)
	b, err := Adjudicate(context.Background(), ticket, true, scanAt(baseTime), advisory, Policy{})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
