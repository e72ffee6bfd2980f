package ticketing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const CredentialVersion = 1

// Credential is the wire form of a ticket presented at a gate. It
// carries every signed field plus the signature, so a disconnected
// verifier can adjudicate without a ticket lookup.
type Credential struct {
	Version        int        `json:"v"`
	TicketID       string     `json:"ticket_id"`
	Token          string     `json:"token"`
	Signature      string     `json:"signature"`
	KeyVersion     string     `json:"key_version"`
	LotID          string     `json:"lot_id"`
	Type           TicketType `json:"type"`
	ValidFrom      int64      `json:"valid_from"`
	ValidTo        int64      `json:"valid_to"`
	QuotaOrMinutes int64      `json:"quota_or_minutes"`
}

func CredentialFromTicket(t Ticket) Credential {
	return Credential{
		Version:        CredentialVersion,
		TicketID:       t.ID,
		Token:          t.Token,
		Signature:      t.Signature,
		KeyVersion:     t.KeyVersion,
		LotID:          t.LotID,
		Type:           t.Type,
		ValidFrom:      t.ValidFrom.Unix(),
		ValidTo:        t.ValidTo.Unix(),
		QuotaOrMinutes: t.QuotaOrMinutes,
	}
}

// Encode renders the credential as url-safe base64 JSON, the form
// embedded in QR codes.
func (c Credential) Encode() string {
	buff, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(buff)
}

func DecodeCredential(encoded string) (Credential, error) {
	buff, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Credential{}, fmt.Errorf("malformed credential: %w", err)
	}

	var c Credential
	if err := json.Unmarshal(buff, &c); err != nil {
		return Credential{}, fmt.Errorf("malformed credential: %w", err)
	}

	if c.Version != CredentialVersion {
		return Credential{}, fmt.Errorf("unsupported credential version %d", c.Version)
	}

	return c, nil
}

func (c Credential) ValidFromTime() time.Time { return time.Unix(c.ValidFrom, 0).UTC() }
func (c Credential) ValidToTime() time.Time   { return time.Unix(c.ValidTo, 0).UTC() }
