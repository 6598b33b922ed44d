package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports per-student targeting, cohort-based experiments, and
// time-windowed activation.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	studentOverrides map[string]map[string]bool // studentID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Students are assigned based on hash of their ID
	RolloutPercent int

	// Cohort targeting (e.g., "2026-spring", "2026-fall")
	// Empty means all cohorts
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	StudentID string // Student UUID
	Cohort    string // Student cohort (e.g., "2026-spring")
	IsAdmin   bool   // Is admin user
}

// Predefined feature flag names.
const (
	// === Completion & Certificate Rules ===

	// FeatureCompletionExactCount requires the completed-lesson count to
	// exactly match the catalog's lesson count before a course can be
	// completed. When off, completing at least that many lessons suffices
	// (the catalog may have shrunk since enrollment).
	FeatureCompletionExactCount = "completion.requires_exact_count"

	// FeatureAutoIssueCertificate issues the certificate automatically when
	// the course-completed event is handled, without an explicit request.
	FeatureAutoIssueCertificate = "completion.auto_issue_certificate"

	// === Payment Rules ===

	// FeatureCancelOnRefund cancels the enrollment when its payment is
	// refunded. When off, the enrollment stays active after a refund.
	FeatureCancelOnRefund = "payment.cancel_enrollment_on_refund"

	// FeatureReconcilePending lets the scheduler settle payments stuck in
	// the pending state against the gateway.
	FeatureReconcilePending = "payment.reconcile_pending"

	// === Notification Features ===
	FeatureNotifyEnrollmentActivated = "notify.enrollment_activated"
	FeatureNotifyPaymentFailed       = "notify.payment_failed"
	FeatureNotifyCertificateIssued   = "notify.certificate_issued"

	// === Experimental Features ===
	FeatureExperimentalProgressProjection = "experimental.progress_projection" // Redis read model
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		studentOverrides: make(map[string]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Completion rules. Exact count is off: the catalog is allowed to
	// shrink after enrollment without blocking completion.
	ff.features[FeatureCompletionExactCount] = &Feature{
		Name:           FeatureCompletionExactCount,
		Description:    "Require exact lesson count match for course completion",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureAutoIssueCertificate] = &Feature{
		Name:           FeatureAutoIssueCertificate,
		Description:    "Issue certificates automatically on course completion",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Payment rules
	ff.features[FeatureCancelOnRefund] = &Feature{
		Name:           FeatureCancelOnRefund,
		Description:    "Cancel enrollment when its payment is refunded",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureReconcilePending] = &Feature{
		Name:           FeatureReconcilePending,
		Description:    "Settle pending payments against the gateway",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Notification features
	ff.features[FeatureNotifyEnrollmentActivated] = &Feature{
		Name:           FeatureNotifyEnrollmentActivated,
		Description:    "Notify student when a course becomes available",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyPaymentFailed] = &Feature{
		Name:           FeatureNotifyPaymentFailed,
		Description:    "Notify student when a payment is declined",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyCertificateIssued] = &Feature{
		Name:           FeatureNotifyCertificateIssued,
		Description:    "Notify student when a certificate is issued",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalProgressProjection] = &Feature{
		Name:           FeatureExperimentalProgressProjection,
		Description:    "Maintain Redis progress read model from events",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_PAYMENT_CANCEL_ENROLLMENT_ON_REFUND=false
// Example: FEATURE_NOTIFY_CERTIFICATE_ISSUED=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "payment.cancel_enrollment_on_refund" -> "FEATURE_PAYMENT_CANCEL_ENROLLMENT_ON_REFUND"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check student overrides first
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check cohort targeting
	if len(feature.TargetCohorts) > 0 && ctx != nil && ctx.Cohort != "" {
		cohortMatch := false
		for _, c := range feature.TargetCohorts {
			if c == ctx.Cohort {
				cohortMatch = true
				break
			}
		}
		if !cohortMatch {
			return false
		}
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a student is in the rollout percentage.
// Uses consistent hashing so students stay in their bucket.
func (ff *FeatureFlags) isInRollout(studentID, featureName string, percent int) bool {
	// Create a consistent hash for this student+feature combination
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(studentID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a student.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !ff.isEnabledLocked(featureName, ctx) {
		return ""
	}

	if len(feature.Variants) == 0 || ctx == nil {
		return ""
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.StudentID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// isEnabledLocked is IsEnabled without taking the lock; callers hold it.
func (ff *FeatureFlags) isEnabledLocked(featureName string, ctx *FeatureContext) bool {
	if ctx != nil && ctx.StudentID != "" {
		if overrides, ok := ff.studentOverrides[ctx.StudentID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	if ctx != nil && ctx.IsAdmin {
		return true
	}
	if !feature.Enabled {
		return false
	}
	if feature.RolloutPercent < 100 && ctx != nil && ctx.StudentID != "" {
		return ff.isInRollout(ctx.StudentID, featureName, feature.RolloutPercent)
	}
	return feature.RolloutPercent > 0
}

// SetStudentOverride sets a feature override for a specific student.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetStudentOverride(studentID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.studentOverrides[studentID]; !ok {
		ff.studentOverrides[studentID] = make(map[string]bool)
	}
	ff.studentOverrides[studentID][featureName] = enabled
}

// ClearStudentOverrides removes all overrides for a student.
func (ff *FeatureFlags) ClearStudentOverrides(studentID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.studentOverrides, studentID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Convenience methods for common checks ---

// NotificationsEnabled checks if any notifications are enabled.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyEnrollmentActivated, ctx) ||
		ff.IsEnabled(FeatureNotifyPaymentFailed, ctx) ||
		ff.IsEnabled(FeatureNotifyCertificateIssued, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
