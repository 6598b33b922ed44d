package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureCancelOnRefund, nil))
	assert.True(t, ff.IsEnabled(FeatureAutoIssueCertificate, nil))
	assert.True(t, ff.IsEnabled(FeatureReconcilePending, nil))
	assert.True(t, ff.NotificationsEnabled(nil))

	assert.False(t, ff.IsEnabled(FeatureCompletionExactCount, nil))
	assert.False(t, ff.IsEnabled(FeatureExperimentalProgressProjection, nil))

	assert.False(t, ff.IsEnabled("no.such.feature", nil))
}

func TestFeatureFlags_EnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_PAYMENT_CANCEL_ENROLLMENT_ON_REFUND", "false")
	t.Setenv("FEATURE_COMPLETION_REQUIRES_EXACT_COUNT", "true")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureCancelOnRefund, nil))
	assert.True(t, ff.IsEnabled(FeatureCompletionExactCount, nil))
}

func TestFeatureFlags_EnvironmentPercentRollout(t *testing.T) {
	t.Setenv("FEATURE_NOTIFY_CERTIFICATE_ISSUED", "0")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureNotifyCertificateIssued, nil))
}

func TestFeatureFlags_StudentOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{StudentID: "stud-1"}

	require.False(t, ff.IsEnabled(FeatureCompletionExactCount, ctx))

	ff.SetStudentOverride("stud-1", FeatureCompletionExactCount, true)
	assert.True(t, ff.IsEnabled(FeatureCompletionExactCount, ctx))

	// Other students keep the default.
	assert.False(t, ff.IsEnabled(FeatureCompletionExactCount, &FeatureContext{StudentID: "stud-2"}))

	ff.ClearStudentOverrides("stud-1")
	assert.False(t, ff.IsEnabled(FeatureCompletionExactCount, ctx))
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()

	ctx := &FeatureContext{StudentID: "stud-1", IsAdmin: true}
	assert.True(t, ff.IsEnabled(FeatureExperimentalProgressProjection, ctx))
}

func TestFeatureFlags_RolloutPercent(t *testing.T) {
	ff := LoadFeatureFlags()

	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyPaymentFailed, 0))
	assert.False(t, ff.IsEnabled(FeatureNotifyPaymentFailed, &FeatureContext{StudentID: "stud-1"}))

	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyPaymentFailed, 100))
	assert.True(t, ff.IsEnabled(FeatureNotifyPaymentFailed, &FeatureContext{StudentID: "stud-1"}))

	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureNotifyPaymentFailed, 150), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.SetRolloutPercent("no.such.feature", 50), ErrFeatureNotFound)
}

func TestFeatureFlags_RolloutBucketIsStable(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyPaymentFailed, 50))

	ctx := &FeatureContext{StudentID: "stud-1"}
	first := ff.IsEnabled(FeatureNotifyPaymentFailed, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureNotifyPaymentFailed, ctx))
	}
}

func TestFeatureFlags_GetAllFeaturesReturnsCopies(t *testing.T) {
	ff := LoadFeatureFlags()

	all := ff.GetAllFeatures()
	require.Contains(t, all, FeatureCancelOnRefund)

	all[FeatureCancelOnRefund].Enabled = false
	assert.True(t, ff.IsEnabled(FeatureCancelOnRefund, nil), "mutating the copy must not affect the live flags")
}
