package sign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsel-ticketmaster/tm-gate/internal/ticketing"
)

func testKeyring() *Keyring {
	return NewKeyring(map[string]string{
		"v1": "first-secret",
		"v2": "second-secret",
	})
}

func testFields() Fields {
	return Fields{
		TicketID:       "TK-0001",
		Token:          "b2c9f6a1",
		Type:           ticketing.TicketTypeMulti,
		ValidFrom:      time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		ValidTo:        time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC),
		QuotaOrMinutes: 5,
		LotID:          "LOT-77",
	}
}

func TestSignAndVerify(t *testing.T) {
	k := testKeyring()
	f := testFields()

	sig, err := k.Sign(f, "v1")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	assert.True(t, k.Verify(f, sig, "v1"))
}

func TestVerifyRejectsEveryAlteredField(t *testing.T) {
	k := testKeyring()
	f := testFields()

	sig, err := k.Sign(f, "v1")
	require.NoError(t, err)

	mutations := map[string]func(Fields) Fields{
		"ticket id": func(f Fields) Fields { f.TicketID = "TK-0002"; return f },
		"token":     func(f Fields) Fields { f.Token = "ffffffff"; return f },
		"type":      func(f Fields) Fields { f.Type = ticketing.TicketTypeSingle; return f },
		"valid from": func(f Fields) Fields {
			f.ValidFrom = f.ValidFrom.Add(time.Second)
			return f
		},
		"valid to": func(f Fields) Fields {
			f.ValidTo = f.ValidTo.Add(-time.Second)
			return f
		},
		"quota": func(f Fields) Fields { f.QuotaOrMinutes = 500; return f },
		"lot":   func(f Fields) Fields { f.LotID = "LOT-78"; return f },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.False(t, k.Verify(mutate(f), sig, "v1"), "altered %s must not verify", name)
		})
	}
}

func TestVerifyRejectsUnknownKeyVersion(t *testing.T) {
	k := testKeyring()
	f := testFields()

	sig, err := k.Sign(f, "v1")
	require.NoError(t, err)

	assert.False(t, k.Verify(f, sig, "v9"))
}

func TestVerifyRejectsSignatureFromOtherKeyVersion(t *testing.T) {
	k := testKeyring()
	f := testFields()

	sig, err := k.Sign(f, "v1")
	require.NoError(t, err)

	assert.False(t, k.Verify(f, sig, "v2"))
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	k := testKeyring()

	assert.False(t, k.Verify(testFields(), "not-hex", "v1"))
}

func TestSignUnknownKeyVersion(t *testing.T) {
	k := testKeyring()

	_, err := k.Sign(testFields(), "v9")
	assert.Error(t, err)
}

func TestRotationKeepsHistoricalTicketsVerifiable(t *testing.T) {
	f := testFields()

	old := NewKeyring(map[string]string{"v1": "first-secret"})
	sig, err := old.Sign(f, "v1")
	require.NoError(t, err)

	rotated := testKeyring()
	assert.True(t, rotated.Verify(f, sig, "v1"))
}

func TestCanonicalizeIsTimezoneIndependent(t *testing.T) {
	f := testFields()

	local := f
	local.ValidFrom = f.ValidFrom.In(time.FixedZone("GMT+7", 7*3600))
	local.ValidTo = f.ValidTo.In(time.FixedZone("GMT+7", 7*3600))

	assert.Equal(t, Canonicalize(f), Canonicalize(local))
}
