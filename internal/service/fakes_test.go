package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/cyber-companion/internal/errs"
	"github.com/and161185/cyber-companion/internal/limiter"
	"github.com/and161185/cyber-companion/internal/model"
	"github.com/and161185/cyber-companion/internal/repository"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

/************ users / profiles ************/

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*model.User
	names map[string]uuid.UUID

	profiles *fakeProfiles

	createErr error
	getErr    error
	deleteErr error
	deleted   []uuid.UUID
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(p *fakeProfiles) *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*model.User{}, names: map[string]uuid.UUID{}, profiles: p}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byID[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := f.names[u.Username]; ok {
		return errs.ErrAlreadyExists
	}
	u.CreatedAt = testNow
	cpy := *u
	f.byID[u.ID], f.names[u.Username] = &cpy, u.ID
	if f.profiles != nil {
		pc := *p
		pc.UserID = u.ID
		f.profiles.put(&pc)
	}
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	delete(f.names, u.Username)
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Profile

	getErr   error
	touchErr error
	setCalls int

	actions *fakeActions // written in the same "transaction" as the 2FA flag
}

var _ repository.ProfileRepository = (*fakeProfiles)(nil)

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{byID: map[uuid.UUID]*model.Profile{}} }

func (f *fakeProfiles) put(p *model.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[p.UserID] = p
}

func (f *fakeProfiles) with(id uuid.UUID, fn func(p *model.Profile)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	fn(p)
	return nil
}

func (f *fakeProfiles) Get(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out model.Profile
	err := f.with(id, func(p *model.Profile) { out = *p })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *fakeProfiles) SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, a *model.SecurityAction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return false, errs.ErrNotFound
	}
	if p.TwoFactorEnabled == enabled {
		return false, nil
	}
	if a != nil && f.actions != nil {
		if err := f.actions.Append(ctx, a); err != nil {
			return false, err
		}
	}
	p.TwoFactorEnabled = enabled
	return true, nil
}

func (f *fakeProfiles) UpdatePreferences(_ context.Context, id uuid.UUID, email, weekly bool) error {
	return f.with(id, func(p *model.Profile) { p.EmailNotifications, p.WeeklyReports = email, weekly })
}

func (f *fakeProfiles) SetSecurityScore(_ context.Context, id uuid.UUID, score int) error {
	f.setCalls++
	return f.with(id, func(p *model.Profile) { p.TotalSecurityScore = score })
}

func (f *fakeProfiles) TouchActivity(_ context.Context, id uuid.UUID, day time.Time) (int, error) {
	if f.touchErr != nil {
		return 0, f.touchErr
	}
	d := day.UTC().Truncate(24 * time.Hour)
	var streak int
	err := f.with(id, func(p *model.Profile) {
		switch {
		case p.LastActiveOn != nil && p.LastActiveOn.Equal(d):
		case p.LastActiveOn != nil && p.LastActiveOn.Equal(d.Add(-24*time.Hour)):
			p.StreakDays++
		default:
			p.StreakDays = 1
		}
		p.LastActiveOn = &d
		streak = p.StreakDays
	})
	return streak, err
}

/************ actions ************/

type fakeActions struct {
	mu     sync.Mutex
	rows   []model.SecurityAction
	nextID int64
	now    func() time.Time

	appendErr error
	sinceErr  error
}

var _ repository.ActionRepository = (*fakeActions)(nil)

func (f *fakeActions) Append(_ context.Context, a *model.SecurityAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.nextID++
	a.ID = f.nextID
	a.CreatedAt = testNow
	if f.now != nil {
		a.CreatedAt = f.now()
	}
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeActions) Since(_ context.Context, userID uuid.UUID, since time.Time, limit int) ([]model.SecurityAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sinceErr != nil {
		return nil, f.sinceErr
	}
	var out []model.SecurityAction
	for _, a := range f.rows {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeActions) add(userID uuid.UUID, t model.ActionType, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.rows = append(f.rows, model.SecurityAction{ID: f.nextID, UserID: userID, ActionType: t, CreatedAt: at})
}

/************ checks ************/

type fakeChecks struct {
	mu        sync.Mutex
	passwords []model.PasswordCheck
	fps       map[string]bool
	breaches  map[string]*model.BreachCheck

	saveErr   error
	upsertErr error
	latestErr error
	upserts   int

	actions *fakeActions // written in the same "transaction" as the breach row
}

var _ repository.CheckRepository = (*fakeChecks)(nil)

func newFakeChecks() *fakeChecks {
	return &fakeChecks{fps: map[string]bool{}, breaches: map[string]*model.BreachCheck{}}
}

func (f *fakeChecks) SavePasswordCheck(_ context.Context, pc *model.PasswordCheck, fp []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	key := pc.UserID.String() + string(fp)
	pc.IsUnique = !f.fps[key]
	f.fps[key] = true
	pc.ID = int64(len(f.passwords) + 1)
	pc.CreatedAt = testNow
	f.passwords = append(f.passwords, *pc)
	return nil
}

func (f *fakeChecks) LatestPasswordCheck(_ context.Context, userID uuid.UUID) (*model.PasswordCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	for i := len(f.passwords) - 1; i >= 0; i-- {
		if f.passwords[i].UserID == userID {
			c := f.passwords[i]
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeChecks) UpsertBreachCheck(ctx context.Context, bc *model.BreachCheck, a *model.SecurityAction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if a != nil && f.actions != nil {
		if err := f.actions.Append(ctx, a); err != nil {
			return false, err
		}
	}
	f.upserts++
	key := bc.UserID.String() + "|" + bc.EmailChecked
	prev, ok := f.breaches[key]
	if ok {
		bc.ID = prev.ID
	} else {
		bc.ID = int64(len(f.breaches) + 1)
	}
	c := *bc
	f.breaches[key] = &c
	return !ok, nil
}

func (f *fakeChecks) GetBreachCheck(_ context.Context, userID uuid.UUID, email string) (*model.BreachCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bc, ok := f.breaches[userID.String()+"|"+email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *bc
	return &c, nil
}

func (f *fakeChecks) LatestBreachCheck(_ context.Context, userID uuid.UUID) (*model.BreachCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	var best *model.BreachCheck
	for _, bc := range f.breaches {
		if bc.UserID == userID && (best == nil || bc.LastChecked.After(best.LastChecked)) {
			best = bc
		}
	}
	if best == nil {
		return nil, errs.ErrNotFound
	}
	c := *best
	return &c, nil
}

/************ pets ************/

type fakePets struct {
	mu      sync.Mutex
	byOwner map[uuid.UUID]*model.Pet
	history []model.MoodHistory

	// conflicts makes the next N UpdateMood calls lose the race.
	conflicts int
	// onConflict runs before a forced conflict is reported, e.g. to bump the stored version.
	onConflict func(p *model.Pet)
	updates    int
	renameErr  error
}

var _ repository.PetRepository = (*fakePets)(nil)

func newFakePets() *fakePets { return &fakePets{byOwner: map[uuid.UUID]*model.Pet{}} }

func (f *fakePets) GetOrCreate(_ context.Context, p *model.Pet) (*model.Pet, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.byOwner[p.OwnerID]; ok {
		c := *cur
		return &c, false, nil
	}
	c := *p
	c.Ver = 1
	f.byOwner[p.OwnerID] = &c
	out := c
	return &out, true, nil
}

func (f *fakePets) GetByOwner(_ context.Context, ownerID uuid.UUID) (*model.Pet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byOwner[ownerID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakePets) UpdateMood(_ context.Context, up model.MoodUpdate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	var pet *model.Pet
	for _, p := range f.byOwner {
		if p.ID == up.PetID {
			pet = p
		}
	}
	if pet == nil {
		return 0, errs.ErrVersionConflict
	}
	if f.conflicts > 0 {
		f.conflicts--
		if f.onConflict != nil {
			f.onConflict(pet)
		}
		return 0, errs.ErrVersionConflict
	}
	if pet.Ver != up.BaseVer {
		return 0, errs.ErrVersionConflict
	}
	pet.Ver++
	pet.CurrentMood, pet.MoodScore = up.Mood, up.MoodScore
	if up.Trigger != "" {
		f.history = append(f.history, model.MoodHistory{
			ID: int64(len(f.history) + 1), PetID: pet.ID, Mood: up.Mood, MoodScore: up.MoodScore, TriggerAction: up.Trigger,
		})
	}
	return pet.Ver, nil
}

func (f *fakePets) Rename(_ context.Context, ownerID uuid.UUID, name string, petType model.PetType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	p, ok := f.byOwner[ownerID]
	if !ok {
		return errs.ErrNotFound
	}
	p.Name, p.PetType = name, petType
	return nil
}

func (f *fakePets) History(_ context.Context, petID uuid.UUID, limit int) ([]model.MoodHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MoodHistory
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].PetID == petID {
			out = append(out, f.history[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

/************ limiter / provider ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error
	hitErr   error

	allowCalls int
	hitCalls   int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	if l.allowOK {
		return true, 0, l.allowErr
	}
	return false, time.Minute, l.allowErr
}

func (l *fakeLimiter) Hit(context.Context, uuid.UUID, []byte) (bool, time.Duration, error) {
	l.hitCalls++
	return false, 0, l.hitErr
}

type fakeProvider struct {
	res   model.BreachResult
	err   error
	calls int
}

func (p *fakeProvider) Lookup(context.Context, string) (model.BreachResult, error) {
	p.calls++
	return p.res, p.err
}

/************ wiring ************/

type fixedRand struct{ n int }

func (f fixedRand) IntN(n int) int { return f.n % n }

type world struct {
	users    *fakeUsers
	profiles *fakeProfiles
	actions  *fakeActions
	checks   *fakeChecks
	pets     *fakePets
	lim      *fakeLimiter
	provider *fakeProvider

	petSvc      *PetServiceImpl
	securitySvc *SecurityServiceImpl
	scoreSvc    *ScoreServiceImpl
	accountSvc  *AccountServiceImpl
}

func newWorld() *world {
	w := &world{
		profiles: newFakeProfiles(),
		actions:  &fakeActions{},
		checks:   newFakeChecks(),
		pets:     newFakePets(),
		lim:      &fakeLimiter{allowOK: true},
		provider: &fakeProvider{},
	}
	w.users = newFakeUsers(w.profiles)
	w.profiles.actions, w.checks.actions = w.actions, w.actions

	w.petSvc = NewPetService(w.pets, w.actions, nil)
	w.petSvc.now, w.petSvc.rnd = fixedNow, fixedRand{}

	w.securitySvc = NewSecurityService(SecurityDeps{
		Profiles:  w.profiles,
		Actions:   w.actions,
		Checks:    w.checks,
		Pets:      w.petSvc,
		Provider:  w.provider,
		Limiter:   w.lim,
		Freshness: 24 * time.Hour,
	})
	w.securitySvc.now = fixedNow

	w.scoreSvc = NewScoreService(w.profiles, w.actions, w.checks, w.petSvc, nil)
	w.scoreSvc.now = fixedNow

	w.accountSvc = NewAccountService(w.users, w.profiles, w.petSvc, nil)
	w.accountSvc.now = fixedNow
	return w
}

// provision creates a user the way the transport does on first contact.
func (w *world) provision(name string) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	if err := w.accountSvc.EnsureUser(context.Background(), id, name); err != nil {
		panic(err)
	}
	return id
}

const time1h = time.Hour

var errBoom = errors.New("boom")
