package domain_test

import (
	"testing"

	"autopost-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNotification_Validate(t *testing.T) {
	tests := []struct {
		name  string
		note  domain.Notification
		valid bool
	}{
		{"beta signup", domain.Notification{Kind: domain.NotifyBetaSignup, BetaSignup: &domain.BetaSignupNotice{Email: "a@b.co"}}, true},
		{"beta signup without payload", domain.Notification{Kind: domain.NotifyBetaSignup}, false},
		{"intake link without token", domain.Notification{Kind: domain.NotifyIntakeLink, IntakeLink: &domain.IntakeLinkNotice{Email: "a@b.co", Name: "A"}}, false},
		{"denial", domain.Notification{Kind: domain.NotifyDenial, Denial: &domain.DenialNotice{Email: "a@b.co", Name: "A"}}, true},
		{"credentials without platform", domain.Notification{Kind: domain.NotifyCredentials, Credentials: &domain.CredentialsNotice{}}, false},
		{"workflow", domain.Notification{Kind: domain.NotifyWorkflow, Workflow: &domain.WorkflowNotice{SkippedSetup: true}}, true},
		{"unknown kind", domain.Notification{Kind: "sms"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.note.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidNotification)
		})
	}
}

func TestPlatformAnswer_Normalize(t *testing.T) {
	yes, no := true, false

	t.Run("Should drop account creation when the account exists", func(t *testing.T) {
		got := domain.PlatformAnswer{HasAccount: &yes, HandleOrURL: "@a", AddToWorkflow: true, WantsAccountCreation: &yes}.Normalize()
		assert.Nil(t, got.WantsAccountCreation)
		assert.Equal(t, "@a", got.HandleOrURL)
		assert.True(t, got.AddToWorkflow)
	})

	t.Run("Should drop handle and workflow without an account", func(t *testing.T) {
		got := domain.PlatformAnswer{HasAccount: &no, HandleOrURL: "@a", AddToWorkflow: true, WantsAccountCreation: &yes}.Normalize()
		assert.Empty(t, got.HandleOrURL)
		assert.False(t, got.AddToWorkflow)
		assert.Equal(t, &yes, got.WantsAccountCreation)
	})

	t.Run("Should keep an unanswered block as is", func(t *testing.T) {
		in := domain.PlatformAnswer{HandleOrURL: "@a"}
		assert.Equal(t, "@a", in.Normalize().HandleOrURL)
	})
}

func TestPlatformNames(t *testing.T) {
	assert.Equal(t, "X (Twitter)", domain.PlatformDisplayName("twitter"))
	assert.Equal(t, "mastodon", domain.PlatformDisplayName("mastodon"))
	assert.Equal(t, "Instagram Reels", domain.WorkflowPlatformName("instagram"))
	assert.Equal(t, "TikTok", domain.WorkflowPlatformName("tiktok"))

	folder, ok := domain.DriveFolderFor("x")
	assert.True(t, ok)
	assert.Equal(t, "X", folder)
	_, ok = domain.DriveFolderFor("snapchat")
	assert.False(t, ok)
}
