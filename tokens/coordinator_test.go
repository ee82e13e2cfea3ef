package tokens

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderovie/fascinante-listings/apierrors"
	"github.com/alexanderovie/fascinante-listings/logging"
	"github.com/alexanderovie/fascinante-listings/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memRepo struct {
	mu   sync.Mutex
	recs map[string]*vault.CredentialRecord
}

func newMemRepo() *memRepo {
	return &memRepo{recs: make(map[string]*vault.CredentialRecord)}
}

func (m *memRepo) Upsert(ctx context.Context, rec *vault.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.recs[rec.PrincipalID] = &clone
	return nil
}

func (m *memRepo) Get(ctx context.Context, principalID string) (*vault.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[principalID]
	if !ok {
		return nil, vault.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

type fakeExchanger struct {
	calls int32
	delay time.Duration
	grant *Grant
	err   error
}

func (f *fakeExchanger) Exchange(ctx context.Context, refreshToken string) (*Grant, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

func seedRecord(t *testing.T, repo *memRepo, principal string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &vault.CredentialRecord{
		PrincipalID:  principal,
		AccessToken:  strings.Repeat("a", 40),
		RefreshToken: strings.Repeat("r", 40),
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}))
}

func newTestCoordinator(repo *memRepo, exch Exchanger) *Coordinator {
	log := logging.NewJSON(io.Discard)
	return NewCoordinator(vault.NewService(repo, log), exch, log)
}

// --- tests ---

func TestAccessToken_FreshTokenReturnedUnchanged(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(time.Hour))
	exch := &fakeExchanger{}
	c := newTestCoordinator(repo, exch)

	tok, err := c.AccessToken(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("a", 40), tok)
	assert.Zero(t, atomic.LoadInt32(&exch.calls), "fresh token must not trigger an exchange")
}

func TestAccessToken_RefreshesInsideMargin(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(2*time.Minute))
	exch := &fakeExchanger{grant: &Grant{
		AccessToken: strings.Repeat("n", 40),
		ExpiresIn:   3600,
	}}
	c := newTestCoordinator(repo, exch)

	tok, err := c.AccessToken(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("n", 40), tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&exch.calls))

	rec, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("n", 40), rec.AccessToken)
	assert.Equal(t, strings.Repeat("r", 40), rec.RefreshToken, "refresh token kept when provider does not rotate")
}

func TestAccessToken_ForceRefreshOnValidToken(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(time.Hour))
	exch := &fakeExchanger{grant: &Grant{
		AccessToken:  strings.Repeat("n", 40),
		RefreshToken: strings.Repeat("s", 40),
		ExpiresIn:    3600,
	}}
	c := newTestCoordinator(repo, exch)

	tok, err := c.AccessToken(context.Background(), "user-1", true)
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("n", 40), tok)

	rec, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("s", 40), rec.RefreshToken, "rotated refresh token must be persisted")
}

func TestAccessToken_ConcurrentCallersShareOneRefresh(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(-time.Minute))
	exch := &fakeExchanger{
		delay: 50 * time.Millisecond,
		grant: &Grant{AccessToken: strings.Repeat("n", 40), ExpiresIn: 3600},
	}
	c := newTestCoordinator(repo, exch)

	const callers = 5
	results := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.AccessToken(context.Background(), "user-1", false)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, strings.Repeat("n", 40), results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&exch.calls), "exactly one upstream refresh")
}

func TestAccessToken_FailedRefreshAllowsNextAttempt(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(-time.Minute))
	exch := &fakeExchanger{err: apierrors.New(apierrors.KindServiceUnavailable, 503, "token endpoint down")}
	c := newTestCoordinator(repo, exch)

	_, err := c.AccessToken(context.Background(), "user-1", false)
	require.Error(t, err)

	// The in-flight entry must be gone: the next call runs a fresh exchange.
	exch.err = nil
	exch.grant = &Grant{AccessToken: strings.Repeat("n", 40), ExpiresIn: 3600}

	tok, err := c.AccessToken(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("n", 40), tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&exch.calls))
}

func TestAccessToken_RefreshSurvivesCallerCancellation(t *testing.T) {
	repo := newMemRepo()
	seedRecord(t, repo, "user-1", time.Now().Add(-time.Minute))
	exch := &fakeExchanger{
		delay: 100 * time.Millisecond,
		grant: &Grant{AccessToken: strings.Repeat("n", 40), ExpiresIn: 3600},
	}
	c := newTestCoordinator(repo, exch)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	tok, err := c.AccessToken(ctx, "user-1", false)
	require.NoError(t, err, "a shared refresh must outlive any single caller's context")
	assert.Equal(t, strings.Repeat("n", 40), tok)

	rec, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("n", 40), rec.AccessToken, "the refreshed grant is persisted despite the cancellation")
}

func TestAccessToken_NoCredentialsIsUnauthorized(t *testing.T) {
	c := newTestCoordinator(newMemRepo(), &fakeExchanger{})

	_, err := c.AccessToken(context.Background(), "stranger", false)
	assert.True(t, apierrors.IsKind(err, apierrors.KindUnauthorized))
}
