package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/module/serverapp/catalog"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing/sign"
)

var issueTime = time.Date(2025, 6, 10, 10, 30, 0, 0, time.UTC)

func testIssuer() (*Issuer, *sign.Keyring) {
	keyring := sign.NewKeyring(map[string]string{"v2": "issuer-secret"})
	issuer := NewIssuer(keyring, "v2")
	issuer.now = func() time.Time { return issueTime }

	return issuer, keyring
}

func TestIssueMintsOneTicketPerUnit(t *testing.T) {
	issuer, keyring := testIssuer()

	tickets, err := issuer.Issue(IssueRequest{
		Package: catalog.Package{
			ID:             "PKG-1",
			Type:           ticketing.TicketTypeMulti,
			Price:          25,
			QuotaOrMinutes: 5,
		},
		Quantity: 3,
		LotID:    "SL-1",
		ShiftID:  "SH-1",
	})
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	seen := map[string]bool{}
	for _, tk := range tickets {
		assert.Equal(t, int64(5), tk.QuotaOrMinutes)
		assert.Equal(t, ticketing.TicketStatusActive, tk.Status)
		assert.Equal(t, "SL-1", tk.LotID)
		assert.Equal(t, "SH-1", tk.ShiftID)
		assert.Equal(t, "v2", tk.KeyVersion)
		assert.False(t, seen[tk.ID], "ticket ids must be unique")
		seen[tk.ID] = true

		// every minted ticket leaves the issuer verifiable
		assert.True(t, keyring.Verify(sign.FieldsFromTicket(tk), tk.Signature, tk.KeyVersion))
	}
}

func TestIssueAggregatesTimepassQuantity(t *testing.T) {
	issuer, _ := testIssuer()

	tickets, err := issuer.Issue(IssueRequest{
		Package: catalog.Package{
			ID:             "PKG-TP",
			Type:           ticketing.TicketTypeTimepass,
			QuotaOrMinutes: 60,
		},
		Quantity: 4,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)

	assert.Equal(t, int64(240), tickets[0].QuotaOrMinutes)
	assert.Equal(t, issueTime.Add(8*time.Hour), tickets[0].ValidTo)
}

func TestIssueValidityWindowByType(t *testing.T) {
	issuer, _ := testIssuer()

	cases := []struct {
		ticketType ticketing.TicketType
		wantTo     time.Time
	}{
		{ticketing.TicketTypeSingle, time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)},
		{ticketing.TicketTypeMulti, issueTime.Add(30 * 24 * time.Hour)},
		{ticketing.TicketTypeTimepass, issueTime.Add(8 * time.Hour)},
		{ticketing.TicketTypeCredit, issueTime.Add(365 * 24 * time.Hour)},
	}

	for _, c := range cases {
		t.Run(string(c.ticketType), func(t *testing.T) {
			tickets, err := issuer.Issue(IssueRequest{
				Package:  catalog.Package{Type: c.ticketType, QuotaOrMinutes: 1},
				Quantity: 1,
			})
			require.NoError(t, err)
			require.Len(t, tickets, 1)

			assert.Equal(t, issueTime, tickets[0].ValidFrom)
			assert.Equal(t, c.wantTo, tickets[0].ValidTo)
		})
	}
}

func TestIssueHonorsPackageValidityOverride(t *testing.T) {
	issuer, _ := testIssuer()

	override := int64(90)
	tickets, err := issuer.Issue(IssueRequest{
		Package: catalog.Package{
			Type:            ticketing.TicketTypeSingle,
			QuotaOrMinutes:  1,
			ValidityMinutes: &override,
		},
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, issueTime.Add(90*time.Minute), tickets[0].ValidTo)
}

func TestIssueRejectsZeroQuantity(t *testing.T) {
	issuer, _ := testIssuer()

	_, err := issuer.Issue(IssueRequest{
		Package:  catalog.Package{Type: ticketing.TicketTypeSingle},
		Quantity: 0,
	})
	assert.Error(t, err)
}

func TestIssueFailsWhenSigningKeyMissing(t *testing.T) {
	keyring := sign.NewKeyring(map[string]string{"v1": "issuer-secret"})
	issuer := NewIssuer(keyring, "v9")

	_, err := issuer.Issue(IssueRequest{
		Package:  catalog.Package{Type: ticketing.TicketTypeSingle, QuotaOrMinutes: 1},
		Quantity: 1,
	})
	assert.Error(t, err)
}
