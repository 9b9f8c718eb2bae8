package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/database"
	"autopost-backend/pkg/logger"

	"github.com/jackc/pgx/v5"
)

type onboardingRepo struct {
	db database.DB
}

func NewOnboardingRepository(db database.DB) domain.OnboardingRepository {
	return &onboardingRepo{db: db}
}

// ============================================================================
// Load
// ============================================================================

func (r *onboardingRepo) Load(ctx context.Context, userID string) (domain.OnboardingState, error) {
	var (
		businessName, websiteURL, industry, brandVoice, userType *string
		postingGoals                                            []string
		step                                                    *int
		completed                                               *bool
	)

	err := r.db.QueryRow(ctx, `
		SELECT business_name, website_url, industry::text, brand_voice,
		       posting_goals, user_type::text, onboarding_step, onboarding_completed
		FROM profiles
		WHERE id = $1
	`, userID).Scan(&businessName, &websiteURL, &industry, &brandVoice,
		&postingGoals, &userType, &step, &completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OnboardingState{}, domain.ErrNotFound
		}
		return domain.OnboardingState{}, fmt.Errorf("failed to load profile: %w", err)
	}

	data := domain.DefaultOnboardingData()
	data.BrandName = deref(businessName)
	data.WebsiteOrSocial = deref(websiteURL)
	data.Industry = deref(industry)
	data.BrandVoice = deref(brandVoice)
	data.BusinessType = deref(userType)
	if postingGoals != nil {
		data.PostingGoals = postingGoals
	}

	// 1. Connected accounts
	connRows, err := r.db.Query(ctx, `
		SELECT platform, COALESCE(connected, FALSE), COALESCE(handle, '')
		FROM social_connections
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return domain.OnboardingState{}, fmt.Errorf("failed to load social connections: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var platform string
		var acc domain.ConnectedAccount
		if err := connRows.Scan(&platform, &acc.Connected, &acc.Handle); err != nil {
			return domain.OnboardingState{}, fmt.Errorf("failed to scan social connection: %w", err)
		}
		data.ConnectedAccounts[platform] = acc
	}
	if err := connRows.Err(); err != nil {
		return domain.OnboardingState{}, fmt.Errorf("error iterating social connections: %w", err)
	}

	// 2. Workflows, oldest first so destinations keep their saved order
	wfRows, err := r.db.Query(ctx, `
		SELECT source_platform, destination_platform
		FROM workflows
		WHERE user_id = $1 AND enabled = TRUE
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return domain.OnboardingState{}, fmt.Errorf("failed to load workflows: %w", err)
	}
	defer wfRows.Close()

	for wfRows.Next() {
		var source, dest string
		if err := wfRows.Scan(&source, &dest); err != nil {
			return domain.OnboardingState{}, fmt.Errorf("failed to scan workflow: %w", err)
		}
		if data.MainSourcePlatform == "" {
			data.MainSourcePlatform = source
		}
		data.Destinations = append(data.Destinations, dest)
	}
	if err := wfRows.Err(); err != nil {
		return domain.OnboardingState{}, fmt.Errorf("error iterating workflows: %w", err)
	}

	// 3. Settings
	var (
		autoPublish        *bool
		frequency, testOpt *string
		mainSourcePlatform *string
	)
	err = r.db.QueryRow(ctx, `
		SELECT auto_publish, posting_frequency::text, test_option, main_source_platform
		FROM user_settings
		WHERE user_id = $1
	`, userID).Scan(&autoPublish, &frequency, &testOpt, &mainSourcePlatform)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.OnboardingState{}, fmt.Errorf("failed to load user settings: %w", err)
	}
	if err == nil {
		data.AutoPublishEnabled = autoPublish != nil && *autoPublish
		data.Frequency = deref(frequency)
		if testOpt != nil && *testOpt != "" {
			data.TestOption = *testOpt
		}
		if mainSourcePlatform != nil && *mainSourcePlatform != "" {
			data.MainSourcePlatform = *mainSourcePlatform
		}
	}

	stepValue := 0
	if step != nil {
		stepValue = *step
	}
	return domain.NewOnboardingState(stepValue, data, completed != nil && *completed), nil
}

// ============================================================================
// Save (Atomic Transaction)
// ============================================================================

func (r *onboardingRepo) Save(ctx context.Context, userID string, state domain.OnboardingState) error {
	data := state.Data()
	enums := data.Enums()
	if len(enums.Dropped) > 0 {
		logger.Log.Warn("Dropping unknown onboarding enum values", "user_id", userID, "fields", enums.Dropped)
	}

	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		// 1. Profile
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (
				id, business_name, website_url, industry, brand_voice,
				posting_goals, user_type, onboarding_step, onboarding_completed, updated_at
			)
			VALUES ($1, $2, $3, $4::industry, $5, $6, $7::user_type, $8, $9, NOW())
			ON CONFLICT (id) DO UPDATE SET
				business_name = EXCLUDED.business_name,
				website_url = EXCLUDED.website_url,
				industry = EXCLUDED.industry,
				brand_voice = EXCLUDED.brand_voice,
				posting_goals = EXCLUDED.posting_goals,
				user_type = EXCLUDED.user_type,
				onboarding_step = EXCLUDED.onboarding_step,
				onboarding_completed = profiles.onboarding_completed OR EXCLUDED.onboarding_completed,
				updated_at = NOW()
		`, userID, nullIfEmpty(data.BrandName), nullIfEmpty(data.WebsiteOrSocial), enums.Industry,
			nullIfEmpty(data.BrandVoice), data.PostingGoals, enums.UserType,
			int(state.CurrentStep()), state.Completed())
		if err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		// 2. One connection row per platform, in a stable order
		platforms := make([]string, 0, len(data.ConnectedAccounts))
		for p := range data.ConnectedAccounts {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)

		for _, p := range platforms {
			acc := data.ConnectedAccounts[p]
			_, err = tx.Exec(ctx, `
				INSERT INTO social_connections (user_id, platform, connected, handle, connected_at, updated_at)
				VALUES ($1, $2, $3, $4, CASE WHEN $3 THEN NOW() END, NOW())
				ON CONFLICT (user_id, platform) DO UPDATE SET
					connected = EXCLUDED.connected,
					handle = EXCLUDED.handle,
					connected_at = CASE
						WHEN EXCLUDED.connected THEN COALESCE(social_connections.connected_at, NOW())
					END,
					updated_at = NOW()
			`, userID, p, acc.Connected, nullIfEmpty(acc.Handle))
			if err != nil {
				return fmt.Errorf("failed to save connection %s: %w", p, err)
			}
		}

		// 3. Workflows are replaced wholesale
		_, err = tx.Exec(ctx, `DELETE FROM workflows WHERE user_id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to clear workflows: %w", err)
		}
		if data.MainSourcePlatform != "" {
			for _, dest := range data.Destinations {
				_, err = tx.Exec(ctx, `
					INSERT INTO workflows (user_id, source_platform, destination_platform, enabled)
					VALUES ($1, $2, $3, TRUE)
				`, userID, data.MainSourcePlatform, dest)
				if err != nil {
					return fmt.Errorf("failed to insert workflow %s -> %s: %w", data.MainSourcePlatform, dest, err)
				}
			}
		}

		// 4. Settings
		_, err = tx.Exec(ctx, `
			INSERT INTO user_settings (user_id, auto_publish, posting_frequency, test_option, main_source_platform, updated_at)
			VALUES ($1, $2, $3::posting_frequency, $4, $5, NOW())
			ON CONFLICT (user_id) DO UPDATE SET
				auto_publish = EXCLUDED.auto_publish,
				posting_frequency = EXCLUDED.posting_frequency,
				test_option = EXCLUDED.test_option,
				main_source_platform = EXCLUDED.main_source_platform,
				updated_at = NOW()
		`, userID, data.AutoPublishEnabled, enums.Frequency, data.TestOption, nullIfEmpty(data.MainSourcePlatform))
		if err != nil {
			return fmt.Errorf("failed to save user settings: %w", err)
		}

		return nil
	})
}

// ============================================================================
// Dashboard summary
// ============================================================================

func (r *onboardingRepo) Summary(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	var (
		businessName, mainPlatform *string
		completed                  *bool
		connected, workflows       int64
		autoPublish                bool
	)

	err := r.db.QueryRow(ctx, `
		SELECT p.business_name,
		       p.onboarding_completed,
		       (SELECT COUNT(*) FROM social_connections s WHERE s.user_id = p.id AND s.connected = TRUE),
		       (SELECT COUNT(*) FROM workflows w WHERE w.user_id = p.id AND w.enabled = TRUE),
		       COALESCE(us.auto_publish, FALSE),
		       COALESCE(us.main_source_platform,
		                (SELECT w.source_platform FROM workflows w WHERE w.user_id = p.id ORDER BY w.created_at LIMIT 1))
		FROM profiles p
		LEFT JOIN user_settings us ON us.user_id = p.id
		WHERE p.id = $1
	`, userID).Scan(&businessName, &completed, &connected, &workflows, &autoPublish, &mainPlatform)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load dashboard summary: %w", err)
	}

	summary := &domain.DashboardSummary{
		BusinessName:        deref(businessName),
		MainPlatform:        deref(mainPlatform),
		ConnectedAccounts:   int(connected),
		ActiveWorkflows:     int(workflows),
		AutoPublishEnabled:  autoPublish,
		OnboardingCompleted: completed != nil && *completed,
	}
	if summary.MainPlatform != "" {
		summary.MainPlatformName = domain.PlatformDisplayName(summary.MainPlatform)
	}
	return summary, nil
}
