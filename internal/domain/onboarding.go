package domain

import (
	"context"
	"fmt"
	"slices"
)

// ============================================================================
// Profile enums
// ============================================================================

type Industry string

const (
	IndustryBoxing     Industry = "boxing_combat_sports"
	IndustryFitness    Industry = "fitness_gym"
	IndustryFood       Industry = "food_restaurant"
	IndustryRetail     Industry = "retail_storefront"
	IndustryBeauty     Industry = "beauty_salon"
	IndustryOtherLocal Industry = "other_local_business"
)

func ValidIndustries() []Industry {
	return []Industry{IndustryBoxing, IndustryFitness, IndustryFood, IndustryRetail, IndustryBeauty, IndustryOtherLocal}
}

func (i Industry) IsValid() bool {
	return slices.Contains(ValidIndustries(), i)
}

// UserType is stored from the wizard's business type answer.
type UserType string

const (
	UserTypeBoxer      UserType = "boxer_fighter"
	UserTypeGym        UserType = "gym_studio"
	UserTypeRestaurant UserType = "restaurant_food"
	UserTypeOtherLocal UserType = "other_local_business"
)

func ValidUserTypes() []UserType {
	return []UserType{UserTypeBoxer, UserTypeGym, UserTypeRestaurant, UserTypeOtherLocal}
}

func (t UserType) IsValid() bool {
	return slices.Contains(ValidUserTypes(), t)
}

type PostingFrequency string

const (
	FrequencyFewTimesWeek   PostingFrequency = "few_times_week"
	FrequencyDaily          PostingFrequency = "daily"
	FrequencyMultiplePerDay PostingFrequency = "multiple_per_day"
)

func ValidPostingFrequencies() []PostingFrequency {
	return []PostingFrequency{FrequencyFewTimesWeek, FrequencyDaily, FrequencyMultiplePerDay}
}

func (f PostingFrequency) IsValid() bool {
	return slices.Contains(ValidPostingFrequencies(), f)
}

const (
	TestOptionWatch    = "watch"
	TestOptionProvided = "provided"
)

// ============================================================================
// Wizard steps
// ============================================================================

type WizardStep int

const (
	StepWelcome WizardStep = iota
	StepBrandBasics
	StepConnectAccounts
	StepWorkflows
	StepAutoPublish
)

// TotalSteps counts the welcome screen plus the four main steps.
const TotalSteps = 5

func (s WizardStep) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepBrandBasics:
		return "brand_basics"
	case StepConnectAccounts:
		return "connect_accounts"
	case StepWorkflows:
		return "workflows"
	case StepAutoPublish:
		return "auto_publish"
	default:
		return fmt.Sprintf("step_%d", int(s))
	}
}

// ClampStep maps any integer onto a valid step index.
func ClampStep(n int) WizardStep {
	if n < 0 {
		return StepWelcome
	}
	if n > TotalSteps-1 {
		return WizardStep(TotalSteps - 1)
	}
	return WizardStep(n)
}

// StepIncompleteError is returned by Continue when the current step's
// requirements are not met.
type StepIncompleteError struct {
	Step   WizardStep
	Reason string
}

func (e *StepIncompleteError) Error() string {
	return fmt.Sprintf("step %s incomplete: %s", e.Step, e.Reason)
}

// ============================================================================
// Wizard data
// ============================================================================

type ConnectedAccount struct {
	Connected bool   `json:"connected"`
	Handle    string `json:"handle"`
}

type OnboardingData struct {
	BusinessType       string                      `json:"businessType"`
	BrandName          string                      `json:"brandName"`
	WebsiteOrSocial    string                      `json:"websiteOrSocial"`
	Industry           string                      `json:"industry"`
	BrandVoice         string                      `json:"brandVoice"`
	PostingGoals       []string                    `json:"postingGoals"`
	ConnectedAccounts  map[string]ConnectedAccount `json:"connectedAccounts"`
	MainSourcePlatform string                      `json:"mainSourcePlatform"`
	Destinations       []string                    `json:"destinations"`
	Frequency          string                      `json:"frequency"`
	AutoPublishEnabled bool                        `json:"autoPublishEnabled"`
	TestOption         string                      `json:"testOption"`
}

func DefaultOnboardingData() OnboardingData {
	accounts := make(map[string]ConnectedAccount, len(DefaultConnectedPlatforms))
	for _, p := range DefaultConnectedPlatforms {
		accounts[p] = ConnectedAccount{}
	}
	return OnboardingData{
		PostingGoals:      []string{},
		ConnectedAccounts: accounts,
		Destinations:      []string{},
		TestOption:        TestOptionWatch,
	}
}

// Clone returns a deep copy so snapshots never share slices or maps.
func (d OnboardingData) Clone() OnboardingData {
	out := d
	out.PostingGoals = append([]string{}, d.PostingGoals...)
	out.Destinations = append([]string{}, d.Destinations...)
	out.ConnectedAccounts = make(map[string]ConnectedAccount, len(d.ConnectedAccounts))
	for k, v := range d.ConnectedAccounts {
		out.ConnectedAccounts[k] = v
	}
	return out
}

// ConnectedCount is the number of accounts marked connected.
func (d OnboardingData) ConnectedCount() int {
	n := 0
	for _, acc := range d.ConnectedAccounts {
		if acc.Connected {
			n++
		}
	}
	return n
}

// ProfileEnums holds the enum columns of a profile write. A nil field means
// the submitted value was empty or unknown.
type ProfileEnums struct {
	Industry  *string
	UserType  *string
	Frequency *string
	Dropped   []string
}

func (d OnboardingData) Enums() ProfileEnums {
	var e ProfileEnums
	if d.Industry != "" {
		if Industry(d.Industry).IsValid() {
			e.Industry = &d.Industry
		} else {
			e.Dropped = append(e.Dropped, "industry")
		}
	}
	if d.BusinessType != "" {
		if UserType(d.BusinessType).IsValid() {
			e.UserType = &d.BusinessType
		} else {
			e.Dropped = append(e.Dropped, "user_type")
		}
	}
	if d.Frequency != "" {
		if PostingFrequency(d.Frequency).IsValid() {
			e.Frequency = &d.Frequency
		} else {
			e.Dropped = append(e.Dropped, "posting_frequency")
		}
	}
	return e
}

// withoutSource drops the main source and duplicates from destinations.
func withoutSource(destinations []string, source string) []string {
	out := make([]string, 0, len(destinations))
	for _, d := range destinations {
		if d == "" || d == source || slices.Contains(out, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// OnboardingPatch is a partial update. Nil fields are left untouched.
type OnboardingPatch struct {
	BusinessType       *string                     `json:"businessType,omitempty"`
	BrandName          *string                     `json:"brandName,omitempty"`
	WebsiteOrSocial    *string                     `json:"websiteOrSocial,omitempty"`
	Industry           *string                     `json:"industry,omitempty"`
	BrandVoice         *string                     `json:"brandVoice,omitempty"`
	PostingGoals       *[]string                   `json:"postingGoals,omitempty"`
	ConnectedAccounts  map[string]ConnectedAccount `json:"connectedAccounts,omitempty"`
	MainSourcePlatform *string                     `json:"mainSourcePlatform,omitempty"`
	Destinations       *[]string                   `json:"destinations,omitempty"`
	Frequency          *string                     `json:"frequency,omitempty"`
	AutoPublishEnabled *bool                       `json:"autoPublishEnabled,omitempty"`
	TestOption         *string                     `json:"testOption,omitempty" validate:"omitempty,oneof=watch provided"`
}

// ============================================================================
// Immutable wizard snapshot
// ============================================================================

// OnboardingState is a value snapshot of the wizard. Every transition
// returns a new state and leaves the receiver untouched.
type OnboardingState struct {
	step      WizardStep
	data      OnboardingData
	completed bool
}

func NewOnboardingState(step int, data OnboardingData, completed bool) OnboardingState {
	data = data.Clone()
	if data.ConnectedAccounts == nil {
		data.ConnectedAccounts = DefaultOnboardingData().ConnectedAccounts
	}
	if data.TestOption == "" {
		data.TestOption = TestOptionWatch
	}
	data.Destinations = withoutSource(data.Destinations, data.MainSourcePlatform)
	return OnboardingState{step: ClampStep(step), data: data, completed: completed}
}

func DefaultOnboardingState() OnboardingState {
	return OnboardingState{step: StepWelcome, data: DefaultOnboardingData()}
}

func (s OnboardingState) CurrentStep() WizardStep { return s.step }

func (s OnboardingState) Completed() bool { return s.completed }

func (s OnboardingState) IsFinalStep() bool { return s.step == StepAutoPublish }

// Data returns a copy of the wizard answers.
func (s OnboardingState) Data() OnboardingData { return s.data.Clone() }

// WithData merges the provided fields into a new snapshot.
func (s OnboardingState) WithData(p OnboardingPatch) OnboardingState {
	d := s.data.Clone()
	if p.BusinessType != nil {
		d.BusinessType = *p.BusinessType
	}
	if p.BrandName != nil {
		d.BrandName = *p.BrandName
	}
	if p.WebsiteOrSocial != nil {
		d.WebsiteOrSocial = *p.WebsiteOrSocial
	}
	if p.Industry != nil {
		d.Industry = *p.Industry
	}
	if p.BrandVoice != nil {
		d.BrandVoice = *p.BrandVoice
	}
	if p.PostingGoals != nil {
		d.PostingGoals = append([]string{}, (*p.PostingGoals)...)
	}
	if p.ConnectedAccounts != nil {
		d.ConnectedAccounts = make(map[string]ConnectedAccount, len(p.ConnectedAccounts))
		for k, v := range p.ConnectedAccounts {
			d.ConnectedAccounts[k] = v
		}
	}
	if p.MainSourcePlatform != nil && *p.MainSourcePlatform != d.MainSourcePlatform {
		d.MainSourcePlatform = *p.MainSourcePlatform
		d.Destinations = []string{}
	}
	if p.Destinations != nil {
		d.Destinations = append([]string{}, (*p.Destinations)...)
	}
	if p.Frequency != nil {
		d.Frequency = *p.Frequency
	}
	if p.AutoPublishEnabled != nil {
		d.AutoPublishEnabled = *p.AutoPublishEnabled
	}
	if p.TestOption != nil {
		d.TestOption = *p.TestOption
	}
	d.Destinations = withoutSource(d.Destinations, d.MainSourcePlatform)

	return OnboardingState{step: s.step, data: d, completed: s.completed}
}

// WithStep moves to step n, clamped into range.
func (s OnboardingState) WithStep(n int) OnboardingState {
	return OnboardingState{step: ClampStep(n), data: s.data.Clone(), completed: s.completed}
}

// Complete marks the wizard finished without checking step predicates.
func (s OnboardingState) Complete() OnboardingState {
	next := s.WithStep(int(s.step))
	next.completed = true
	return next
}

// CanContinue reports why the current step cannot be left, or nil.
func (s OnboardingState) CanContinue() error {
	d := s.data
	switch s.step {
	case StepWelcome:
		if d.BusinessType == "" {
			return &StepIncompleteError{Step: s.step, Reason: "business type is required"}
		}
		if d.BrandName == "" {
			return &StepIncompleteError{Step: s.step, Reason: "brand name is required"}
		}
	case StepBrandBasics:
		if d.BrandName == "" {
			return &StepIncompleteError{Step: s.step, Reason: "brand name is required"}
		}
		if d.Industry == "" {
			return &StepIncompleteError{Step: s.step, Reason: "industry is required"}
		}
	case StepConnectAccounts:
		if d.ConnectedCount() == 0 {
			return &StepIncompleteError{Step: s.step, Reason: "connect at least one account or skip"}
		}
	case StepWorkflows:
		if d.MainSourcePlatform == "" {
			return &StepIncompleteError{Step: s.step, Reason: "main source platform is required"}
		}
		if len(d.Destinations) == 0 {
			return &StepIncompleteError{Step: s.step, Reason: "select at least one destination"}
		}
	}
	return nil
}

// Continue advances one step. On the final step it completes the wizard.
func (s OnboardingState) Continue() (OnboardingState, error) {
	if err := s.CanContinue(); err != nil {
		return s, err
	}
	if s.IsFinalStep() {
		return s.Complete(), nil
	}
	return s.WithStep(int(s.step) + 1), nil
}

func (s OnboardingState) Back() OnboardingState {
	return s.WithStep(int(s.step) - 1)
}

// Skip leaves the connect step without connecting any account.
func (s OnboardingState) Skip() (OnboardingState, error) {
	if s.step != StepConnectAccounts {
		return s, ErrSkipNotAllowed
	}
	return s.WithStep(int(s.step) + 1), nil
}

// SkippedWorkflowSetup is true when the wizard finished without a usable
// workflow, which the team has to set up by hand.
func (s OnboardingState) SkippedWorkflowSetup() bool {
	return s.data.MainSourcePlatform == "" || len(s.data.Destinations) == 0
}

func (s OnboardingState) View() OnboardingView {
	return OnboardingView{
		CurrentStep: int(s.step),
		StepName:    s.step.String(),
		TotalSteps:  TotalSteps,
		Completed:   s.completed,
		Data:        s.data.Clone(),
	}
}

// ============================================================================
// Data Transfer Objects
// ============================================================================

type OnboardingView struct {
	CurrentStep int            `json:"currentStep"`
	StepName    string         `json:"stepName"`
	TotalSteps  int            `json:"totalSteps"`
	Completed   bool           `json:"completed"`
	Data        OnboardingData `json:"data"`
}

type SetStepRequest struct {
	Step *int `json:"step" validate:"required"`
}

type SaveProgressRequest struct {
	CurrentStep int            `json:"currentStep"`
	Data        OnboardingData `json:"data"`
}

type WizardAction string

const (
	ActionContinue WizardAction = "continue"
	ActionBack     WizardAction = "back"
	ActionSkip     WizardAction = "skip"
)

type NavigateRequest struct {
	Action WizardAction     `json:"action" validate:"required,oneof=continue back skip"`
	Data   *OnboardingPatch `json:"data,omitempty"`
}

type DashboardSummary struct {
	BusinessName        string `json:"businessName"`
	MainPlatform        string `json:"mainPlatform"`
	MainPlatformName    string `json:"mainPlatformName"`
	ConnectedAccounts   int    `json:"connectedAccounts"`
	ActiveWorkflows     int    `json:"activeWorkflows"`
	AutoPublishEnabled  bool   `json:"autoPublishEnabled"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
}

// ============================================================================
// Repository Interface
// ============================================================================

type OnboardingRepository interface {
	// Load returns ErrNotFound when the user has no profile yet.
	Load(ctx context.Context, userID string) (OnboardingState, error)

	// Save writes profile, connections, workflows and settings in one
	// transaction. The completed flag is taken from the state.
	Save(ctx context.Context, userID string, state OnboardingState) error

	Summary(ctx context.Context, userID string) (*DashboardSummary, error)
}

// ============================================================================
// Usecase Interface
// ============================================================================

type OnboardingUsecase interface {
	Get(ctx context.Context, userID string) (*OnboardingView, error)
	Patch(ctx context.Context, userID string, patch OnboardingPatch) (*OnboardingView, error)
	SetStep(ctx context.Context, userID string, step int) (*OnboardingView, error)
	Save(ctx context.Context, userID string, req SaveProgressRequest) (*OnboardingView, error)
	Navigate(ctx context.Context, userID string, req NavigateRequest) (*OnboardingView, error)
	Complete(ctx context.Context, userID string, patch *OnboardingPatch) (*OnboardingView, error)
	Summary(ctx context.Context, userID string) (*DashboardSummary, error)
}
