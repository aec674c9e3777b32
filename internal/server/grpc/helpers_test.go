package grpcserver

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	"github.com/and161185/cyber-companion/internal/api"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/service"
	"github.com/and161185/cyber-companion/internal/token"
)

var signKey = []byte("test-secret")

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	mu        sync.Mutex
	ensured   []token.Identity
	ensureErr error
	deleted   []uuid.UUID
	deleteErr error
	prefs     [2]bool
}

func (f *fakeAccounts) EnsureUser(_ context.Context, id uuid.UUID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, token.Identity{UserID: id, Username: username})
	return f.ensureErr
}

func (f *fakeAccounts) UpdatePreferences(_ context.Context, id uuid.UUID, email, weekly bool) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs = [2]bool{email, weekly}
	return &model.Profile{UserID: id, EmailNotifications: email, WeeklyReports: weekly, StreakDays: 3}, nil
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAccounts) ensuredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ensured)
}

type fakeSecurity struct {
	mu       sync.Mutex
	err      error
	password string
	action   model.ActionType
	details  map[string]any
	email    string
	force    bool
	twoFA    *bool
}

func (f *fakeSecurity) AnalyzePassword(_ context.Context, id uuid.UUID, pw string) (service.PasswordReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = pw
	if f.err != nil {
		return service.PasswordReport{}, f.err
	}
	return service.PasswordReport{
		Check: model.PasswordCheck{ID: 7, UserID: id, StrengthScore: 85, Length: 14, HasUppercase: true, IsUnique: true, CreatedAt: testNow},
		Label: "Strong",
	}, nil
}

func (f *fakeSecurity) RecordAction(_ context.Context, id uuid.UUID, t model.ActionType, details map[string]any) (*model.SecurityAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.action, f.details = t, details
	if f.err != nil {
		return nil, f.err
	}
	return &model.SecurityAction{ID: 1, UserID: id, ActionType: t, Details: details, CreatedAt: testNow}, nil
}

func (f *fakeSecurity) CheckBreach(_ context.Context, id uuid.UUID, email string, force bool) (service.BreachReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email, f.force = email, force
	if f.err != nil {
		return service.BreachReport{}, f.err
	}
	return service.BreachReport{
		Check: model.BreachCheck{ID: 2, UserID: id, EmailChecked: email, BreachesFound: 1, LastChecked: testNow,
			BreachDetails: []model.BreachRecord{{Name: "Adobe", PwnCount: 152445165, DataClasses: []string{"Email addresses"}}}},
		Created: true, Compromised: true, Status: "Compromised",
	}, nil
}

func (f *fakeSecurity) SetTwoFactor(_ context.Context, _ uuid.UUID, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.twoFA = &enabled
	return f.err
}

type fakePets struct {
	mu    sync.Mutex
	err   error
	limit int
	name  string
	typ   model.PetType
}

func (f *fakePets) pet(owner uuid.UUID) model.Pet {
	return model.Pet{OwnerID: owner, Name: model.DefaultPetName, PetType: model.PetCat, CurrentMood: model.MoodHappy, MoodScore: 70, Ver: 2, LastUpdated: testNow}
}

func (f *fakePets) EnsurePet(_ context.Context, owner uuid.UUID) (*model.Pet, error) {
	p := f.pet(owner)
	return &p, f.err
}

func (f *fakePets) RefreshMood(ctx context.Context, owner uuid.UUID) (*model.Pet, error) {
	return f.EnsurePet(ctx, owner)
}

func (f *fakePets) RecomputeMood(_ context.Context, owner uuid.UUID) (service.MoodReport, error) {
	if f.err != nil {
		return service.MoodReport{}, f.err
	}
	return service.MoodReport{Pet: f.pet(owner), Message: "purr"}, nil
}

func (f *fakePets) MoodMessage(model.Mood) string { return "purr" }

func (f *fakePets) MoodDiary(_ context.Context, _ uuid.UUID, limit int) ([]model.MoodHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limit = limit
	return []model.MoodHistory{{ID: 1, Mood: model.MoodHappy, MoodScore: 70, TriggerAction: service.TriggerManualUpdate, CreatedAt: testNow}}, f.err
}

func (f *fakePets) RenamePet(_ context.Context, owner uuid.UUID, name string, pt model.PetType) (*model.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name, f.typ = name, pt
	if f.err != nil {
		return nil, f.err
	}
	p := f.pet(owner)
	p.Name, p.PetType = name, pt
	return &p, nil
}

type fakeScores struct{ err error }

func (f *fakeScores) WeeklyScore(context.Context, uuid.UUID) (service.WeeklyReport, error) {
	return service.WeeklyReport{Score: 78, Grade: model.GradeC}, f.err
}

func (f *fakeScores) OverallGrade(context.Context, uuid.UUID) (service.OverallReport, error) {
	return service.OverallReport{Grade: model.GradeB, Points: 6.5, SecurityScore: 85}, f.err
}

func (f *fakeScores) Tips(context.Context, uuid.UUID) ([]model.Tip, error) {
	return []model.Tip{{Title: "Enable 2FA", Priority: "high"}}, f.err
}

func (f *fakeScores) Dashboard(_ context.Context, id uuid.UUID) (service.Dashboard, error) {
	return service.Dashboard{
		Pet:           model.Pet{OwnerID: id, Name: "Rex", PetType: model.PetDog, CurrentMood: model.MoodNeutral, MoodScore: 50},
		MoodMessage:   "hm",
		Weekly:        service.WeeklyReport{Score: 50, Grade: model.GradeF},
		Recent:        []model.SecurityAction{{ID: 3, ActionType: model.ActionTwoFactorEnabled, CreatedAt: testNow}},
		LatestBreach:  &model.BreachCheck{EmailChecked: "a@b.c", LastChecked: testNow},
		SecurityScore: 50,
		Degraded:      true,
	}, f.err
}

type fixture struct {
	accounts *fakeAccounts
	security *fakeSecurity
	pets     *fakePets
	scores   *fakeScores
	client   *api.Client
	health   healthpb.HealthClient
}

const bufSize = 1 << 20

func startBufGRPC(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: &fakeAccounts{},
		security: &fakeSecurity{},
		pets:     &fakePets{},
		scores:   &fakeScores{},
	}
	log := zap.NewNop()

	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
		AuthUnary(signKey, f.accounts),
	))
	api.RegisterCompanionServer(gs, New(Services{Accounts: f.accounts, Security: f.security, Pets: f.pets, Scores: f.scores}))
	healthpb.RegisterHealthServer(gs, health.NewServer())
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })

	f.client = api.NewClient(cc)
	f.health = healthpb.NewHealthClient(cc)
	return f
}

func jwtFor(t *testing.T, sub uuid.UUID, username string) string {
	t.Helper()
	s, err := token.Issue(signKey, sub, username, time.Now().Add(-5*time.Second), time.Hour)
	require.NoError(t, err)
	return s
}

func ctxAuth(tok string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func signWith(t *testing.T, key []byte, sub uuid.UUID) string {
	t.Helper()
	s, err := token.Issue(key, sub, "", time.Now(), time.Hour)
	require.NoError(t, err)
	return s
}
