package lifecycle_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/lifecycle"
	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"
)

func Test_CanGenerate_GateOrder(t *testing.T) {
	ev := validEvent()
	attended := registration("r1", model.RegistrationAttended, 0)
	confirmed := registration("r2", model.RegistrationConfirmed, 0)
	live := &model.Certificate{ID: "c1", Status: model.CertificatePending}
	revoked := &model.Certificate{ID: "c0", Status: model.CertificateRevoked}

	tests := []struct {
		name string
		reg  *model.Registration
		ev   func() *model.Event
		live *model.Certificate
		want lifecycle.Eligibility
	}{
		{
			name: "confirmed_is_not_attended",
			reg:  &confirmed,
			want: lifecycle.Eligibility{Reason: lifecycle.ReasonNotAttended},
		},
		{
			name: "not_attended_wins_over_existing_certificate",
			reg:  &confirmed,
			live: live,
			want: lifecycle.Eligibility{Reason: lifecycle.ReasonNotAttended},
		},
		{
			name: "attended_with_signatory",
			reg:  &attended,
			want: lifecycle.Eligibility{Allowed: true},
		},
		{
			name: "attended_without_signatories_warns",
			reg:  &attended,
			ev: func() *model.Event {
				e := validEvent()
				e.Signatories = nil
				return e
			},
			want: lifecycle.Eligibility{Allowed: true, Warnings: []string{lifecycle.WarningNoSignatories}},
		},
		{
			name: "live_certificate_exists",
			reg:  &attended,
			live: live,
			want: lifecycle.Eligibility{Reason: lifecycle.ReasonCertificateExists},
		},
		{
			name: "revoked_certificate_does_not_count",
			reg:  &attended,
			live: revoked,
			want: lifecycle.Eligibility{Allowed: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ev
			if tt.ev != nil {
				e = tt.ev()
			}
			assert.Equal(t, tt.want, lifecycle.CanGenerate(tt.reg, e, tt.live))
		})
	}
}

func Test_CanListGenerate_CompletedEventIsEnoughToOffer(t *testing.T) {
	ev := validEvent()
	confirmed := registration("r1", model.RegistrationConfirmed, 0)
	cancelled := registration("r2", model.RegistrationCancelled, 0)

	assert.False(t, lifecycle.CanListGenerate(&confirmed, ev, duringDay))
	assert.True(t, lifecycle.CanListGenerate(&confirmed, ev, afterDay))
	assert.False(t, lifecycle.CanListGenerate(&cancelled, ev, afterDay))

	// Offering it does not make generation itself legal.
	assert.False(t, lifecycle.CanGenerate(&confirmed, ev, nil).Allowed)
}

func Test_CheckGenerate_ReturnsIllegalTransition(t *testing.T) {
	reg := registration("r1", model.RegistrationConfirmed, 0)

	_, err := lifecycle.CheckGenerate(&reg, validEvent(), nil)

	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, lifecycle.ReasonNotAttended, illegal.Rule)
}

func Test_NewCertificate_SnapshotsContent(t *testing.T) {
	reg := registration("r1", model.RegistrationAttended, 0)
	ev := validEvent()

	pending := lifecycle.NewCertificate(&reg, ev, false, afterDay)
	issued := lifecycle.NewCertificate(&reg, ev, true, afterDay)

	assert.Equal(t, model.CertificatePending, pending.Status)
	assert.Nil(t, pending.IssuedAt)
	assert.Equal(t, model.CertificateIssued, issued.Status)
	require.NotNil(t, issued.IssuedAt)
	assert.Equal(t, afterDay, *issued.IssuedAt)

	assert.Equal(t, reg.Name, pending.RecipientName)
	assert.Equal(t, reg.Email, pending.RecipientEmail)
	assert.Equal(t, ev.Title, pending.Title)
	assert.InDelta(t, ev.CMECredits, pending.CMECredits, 0.001)
	assert.NotEqual(t, pending.ID, issued.ID)
	assert.NotEqual(t, pending.CertificateCode, issued.CertificateCode)
}

func Test_NewCertificateCode_Format(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^CME-[0-9A-F]{12}$`), lifecycle.NewCertificateCode())
}

func Test_DecideIssue(t *testing.T) {
	noop, err := lifecycle.DecideIssue(&model.Certificate{Status: model.CertificatePending})
	require.NoError(t, err)
	assert.False(t, noop)

	noop, err = lifecycle.DecideIssue(&model.Certificate{Status: model.CertificateIssued})
	require.NoError(t, err)
	assert.True(t, noop)

	_, err = lifecycle.DecideIssue(&model.Certificate{Status: model.CertificateRevoked})
	assert.Error(t, err)
}

func Test_Revoke_Lifecycle(t *testing.T) {
	cert := &model.Certificate{ID: "c1", Status: model.CertificateIssued}

	_, err := lifecycle.DecideRevoke(cert, "   ")
	var validation *lifecycle.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, []string{"revocation reason is required"}, validation.Messages)
	assert.Equal(t, model.CertificateIssued, cert.Status)

	reason, err := lifecycle.DecideRevoke(cert, "  credits misreported ")
	require.NoError(t, err)
	assert.Equal(t, "credits misreported", reason)
	lifecycle.Revoke(cert, reason, afterDay)
	assert.Equal(t, model.CertificateRevoked, cert.Status)
	assert.Equal(t, "credits misreported", cert.RevokedReason)

	_, err = lifecycle.DecideRevoke(cert, "again")
	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, "certificate is already revoked", illegal.Rule)
}

func Test_DecideRevoke_PendingCannotBeRevoked(t *testing.T) {
	_, err := lifecycle.DecideRevoke(&model.Certificate{Status: model.CertificatePending}, "typo")

	var illegal *lifecycle.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, "only issued certificates can be revoked", illegal.Rule)
}

func Test_Regenerate_Rules(t *testing.T) {
	attended := registration("r1", model.RegistrationAttended, 0)
	cancelled := registration("r1", model.RegistrationCancelled, 0)

	assert.NoError(t, lifecycle.DecideRegenerate(&model.Certificate{Status: model.CertificateIssued}, &attended))
	assert.NoError(t, lifecycle.DecideRegenerate(&model.Certificate{Status: model.CertificatePending}, &attended))
	assert.Error(t, lifecycle.DecideRegenerate(&model.Certificate{Status: model.CertificateRevoked}, &attended))
	assert.Error(t, lifecycle.DecideRegenerate(&model.Certificate{Status: model.CertificateIssued}, &cancelled))
}

func Test_Supersede(t *testing.T) {
	old := &model.Certificate{ID: "c1", Status: model.CertificateIssued}

	lifecycle.Supersede(old, "c2", afterDay)

	assert.False(t, old.IsLive())
	require.NotNil(t, old.SupersededByID)
	assert.Equal(t, "c2", *old.SupersededByID)
	assert.Equal(t, "superseded", old.RevokedReason)
}

func Test_DecideDownload(t *testing.T) {
	assert.NoError(t, lifecycle.DecideDownload(&model.Certificate{Status: model.CertificateIssued}))
	assert.Error(t, lifecycle.DecideDownload(&model.Certificate{Status: model.CertificatePending}))
	assert.Error(t, lifecycle.DecideDownload(&model.Certificate{Status: model.CertificateRevoked}))
}
